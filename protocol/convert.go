package protocol

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dotside-studios/rfid-sfl/rfid"
)

// Errors returned while parsing write requests.
var (
	ErrFieldCountMismatch = errors.New("write fields have different lengths")
	ErrInvalidLibraryID   = errors.New("library id must look like CC-LIB")
	ErrInvalidField       = errors.New("invalid write field")
)

var validHex = regexp.MustCompile(`^[0-9A-F]+$`)

// ParseUID normalizes a tag UID to uppercase hex without separators.
// Supports: "E0:04:01:50", "e0040150", "E0 04 01 50", "E0-04-01-50".
func ParseUID(uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("empty UID")
	}

	cleaned := strings.ReplaceAll(uid, ":", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ToUpper(cleaned)

	if !validHex.MatchString(cleaned) {
		return "", fmt.Errorf("UID contains invalid characters: %s", uid)
	}
	if len(cleaned)%2 != 0 {
		return "", fmt.Errorf("UID has odd number of hex characters: %s", uid)
	}
	return cleaned, nil
}

// WriteItem is one record of a writeTags request. ID is the target tag's
// UID and may be empty.
type WriteItem struct {
	ID              string `json:"id"`
	ItemID          string `json:"itemId"`
	Type            uint8  `json:"type"`
	LibraryID       string `json:"libraryId"`
	ItemSize        uint8  `json:"itemSize"`
	IndexInItemPack uint8  `json:"indexInItemPack"`
}

// Item builds the record to write. LibraryID is split into the two letter
// country and the library code after the separator; it must be ASCII so the
// split falls on character boundaries.
func (w WriteItem) Item() (*rfid.Item, error) {
	if len(w.LibraryID) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLibraryID, w.LibraryID)
	}
	for i := 0; i < len(w.LibraryID); i++ {
		if w.LibraryID[i] >= 0x80 {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidLibraryID, rfid.ErrNonASCII, w.LibraryID)
		}
	}

	item := rfid.NewItem()
	item.SetNumberOfParts(w.ItemSize)
	item.SetOrdinalNumber(w.IndexInItemPack)
	if err := item.SetItemID(w.ItemID); err != nil {
		return nil, err
	}
	if err := item.SetUsageType(w.Type); err != nil {
		return nil, err
	}
	if err := item.SetCountry(w.LibraryID[:2]); err != nil {
		return nil, err
	}
	if err := item.SetLibraryID(w.LibraryID[3:]); err != nil {
		return nil, err
	}
	if w.ID != "" {
		uid, err := ParseUID(w.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", rfid.ErrInvalidCardID, err)
		}
		if err := item.SetCardIDString(uid); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// Items builds every record, stopping at the first invalid one.
func Items(list []WriteItem) ([]*rfid.Item, error) {
	items := make([]*rfid.Item, 0, len(list))
	for i, w := range list {
		item, err := w.Item()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// FormItems reads the parallel write fields of a form. Each field may be
// repeated and may carry a "[]" suffix. Every field must occur the same
// number of times; "id" may be omitted entirely.
func FormItems(form url.Values) ([]WriteItem, error) {
	field := func(name string) []string {
		return append(form[name], form[name+"[]"]...)
	}

	itemIDs := field("itemId")
	ids := field("id")
	types := field("type")
	libraries := field("libraryId")
	sizes := field("itemSize")
	indexes := field("indexInItemPack")

	n := len(itemIDs)
	if len(types) != n || len(libraries) != n || len(sizes) != n || len(indexes) != n {
		return nil, ErrFieldCountMismatch
	}
	if len(ids) != n && len(ids) != 0 {
		return nil, ErrFieldCountMismatch
	}

	list := make([]WriteItem, n)
	for i := range list {
		w := WriteItem{ItemID: itemIDs[i], LibraryID: libraries[i]}
		if len(ids) > 0 {
			w.ID = ids[i]
		}
		var err error
		if w.Type, err = parseByte("type", types[i]); err != nil {
			return nil, err
		}
		if w.ItemSize, err = parseByte("itemSize", sizes[i]); err != nil {
			return nil, err
		}
		if w.IndexInItemPack, err = parseByte("indexInItemPack", indexes[i]); err != nil {
			return nil, err
		}
		list[i] = w
	}
	return list, nil
}

func parseByte(name, v string) (uint8, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
	}
	return uint8(n), nil
}
