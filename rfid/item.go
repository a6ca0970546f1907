// Package rfid implements the Danish data model for library RFID tags: the
// Item record and its fixed-layout byte frame with a CRC-16 checksum.
package rfid

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Field widths of the tag data layout, in bytes.
const (
	ItemIDLen    = 16
	CountryLen   = 2
	LibraryIDLen = 11

	maxNibble = 0x0F
)

// Default values of a freshly constructed Item.
const (
	DefaultUsageType       = 8
	DefaultStandardVersion = 1
	DefaultNumberOfParts   = 1
	DefaultOrdinalNumber   = 1
)

// Item is one library item record as stored on a tag.
//
// An Item with Empty() == true marks a tag that was read but whose content
// failed the checksum; all other fields then hold their defaults. A tag that
// is not present yields no Item at all.
//
// Items are not safe for concurrent use. They are built by Decode or by the
// setters for a single write request and are not mutated afterwards.
type Item struct {
	empty           bool
	cardID          []byte
	usageType       uint8
	standardVersion uint8
	numberOfParts   uint8
	ordinalNumber   uint8
	itemID          string
	country         string
	libraryID       string
}

// NewItem returns an Item with the default usage type, standard version
// and part numbering.
func NewItem() *Item {
	return &Item{
		usageType:       DefaultUsageType,
		standardVersion: DefaultStandardVersion,
		numberOfParts:   DefaultNumberOfParts,
		ordinalNumber:   DefaultOrdinalNumber,
	}
}

// newEmptyItem returns the sentinel for a tag whose checksum did not match.
func newEmptyItem() *Item {
	item := NewItem()
	item.empty = true
	return item
}

// Empty reports whether the item is the checksum-mismatch sentinel.
func (i *Item) Empty() bool { return i.empty }

// UsageType returns the 4-bit usage type (primary item, ...).
func (i *Item) UsageType() uint8 { return i.usageType }

// SetUsageType sets the usage type. Values above 15 are rejected.
func (i *Item) SetUsageType(v uint8) error {
	if v > maxNibble {
		return ErrUsageTypeRange
	}
	i.usageType = v
	return nil
}

// StandardVersion returns the 4-bit data model version.
func (i *Item) StandardVersion() uint8 { return i.standardVersion }

// SetStandardVersion sets the data model version. Values above 15 are rejected.
func (i *Item) SetStandardVersion(v uint8) error {
	if v > maxNibble {
		return ErrStandardVersionRange
	}
	i.standardVersion = v
	return nil
}

// NumberOfParts returns how many tags make up the whole item.
func (i *Item) NumberOfParts() uint8 { return i.numberOfParts }

// SetNumberOfParts sets the number of parts. Any value is accepted.
func (i *Item) SetNumberOfParts(v uint8) { i.numberOfParts = v }

// OrdinalNumber returns the index of this tag within a multi-part item.
func (i *Item) OrdinalNumber() uint8 { return i.ordinalNumber }

// SetOrdinalNumber sets the ordinal number. Any value is accepted.
func (i *Item) SetOrdinalNumber(v uint8) { i.ordinalNumber = v }

// ItemID returns the primary item identifier.
func (i *Item) ItemID() string { return i.itemID }

// SetItemID sets the item identifier, at most 16 bytes.
func (i *Item) SetItemID(v string) error {
	if len(v) > ItemIDLen {
		return ErrItemIDTooLong
	}
	if !isASCII(v) {
		return ErrNonASCII
	}
	i.itemID = v
	return nil
}

// Country returns the two letter country code of the owner library.
func (i *Item) Country() string { return i.country }

// SetCountry sets the country code, at most 2 ASCII bytes.
func (i *Item) SetCountry(v string) error {
	if len(v) > CountryLen {
		return ErrCountryTooLong
	}
	if !isASCII(v) {
		return ErrNonASCII
	}
	i.country = v
	return nil
}

// LibraryID returns the owner library identifier (ISIL without country).
func (i *Item) LibraryID() string { return i.libraryID }

// SetLibraryID sets the library identifier, at most 11 ASCII bytes.
func (i *Item) SetLibraryID(v string) error {
	if len(v) > LibraryIDLen {
		return ErrLibraryIDTooLong
	}
	if !isASCII(v) {
		return ErrNonASCII
	}
	i.libraryID = v
	return nil
}

// CardID returns the hardware UID of the tag the item was read from. It is
// never part of the encoded frame.
func (i *Item) CardID() []byte { return i.cardID }

// SetCardID attaches a hardware UID.
func (i *Item) SetCardID(uid []byte) {
	i.cardID = append([]byte(nil), uid...)
}

// CardIDString renders the hardware UID as upper-case hex, e.g. "E004015012345678".
func (i *Item) CardIDString() string {
	return strings.ToUpper(hex.EncodeToString(i.cardID))
}

// SetCardIDString parses an upper- or lower-case hex UID. An empty string
// clears the UID.
func (i *Item) SetCardIDString(s string) error {
	uid, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCardID, s)
	}
	i.cardID = uid
	return nil
}

// FullLibraryID returns the combined "CC-LIBRARY" form used by circulation
// clients.
func (i *Item) FullLibraryID() string {
	return i.country + "-" + i.libraryID
}

func (i *Item) String() string {
	if i.empty {
		return "Item{empty}"
	}
	return fmt.Sprintf("Item{card=%s type=%d version=%d part=%d/%d id=%q library=%q}",
		i.CardIDString(), i.usageType, i.standardVersion,
		i.ordinalNumber, i.numberOfParts, i.itemID, i.FullLibraryID())
}

// isASCII reports whether v fits the frame's single byte text fields.
func isASCII(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] >= 0x80 {
			return false
		}
	}
	return true
}
