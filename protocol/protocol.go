// Package protocol defines the JSON types of the RFID HTTP and WebSocket API.
// It depends only on the rfid package so client tools can import it without
// pulling in the reader drivers.
package protocol

import "github.com/dotside-studios/rfid-sfl/rfid"

// Tag formats reported in TagJSON.Format.
const (
	FormatDanish  = 61
	FormatUnknown = -1
)

// EmptyTagID is the tag id reported for a tag whose data is not a valid
// record.
const EmptyTagID = "{}"

// DeviceJSON describes a connected reader in the getDevicesList response.
type DeviceJSON struct {
	ID                      string `json:"id"`
	Title                   string `json:"title"`
	IsOnline                bool   `json:"isOnline"`
	ManualConnectIsNeeded   bool   `json:"manualConnectIsNeeded"`
	MultiTagIsSupported     bool   `json:"multiTagIsSupported"`
	IsError                 bool   `json:"isError"`
	IsReadOnly              bool   `json:"isReadOnly"`
	CompoundDataIsSupported bool   `json:"compoundDataIsSupported"`
}

// ItemJSON is one library item in the getItemsList response.
type ItemJSON struct {
	ID   *string   `json:"id"`
	Type uint8     `json:"type"`
	Tags []TagJSON `json:"tags"`
}

// TagJSON is one tag of an item.
type TagJSON struct {
	TagID           string  `json:"tagId"`
	ItemID          *string `json:"itemId"`
	Format          int     `json:"format"`
	Type            uint8   `json:"type"`
	ItemSize        uint8   `json:"itemSize"`
	IndexInItemPack uint8   `json:"indexInItemPack"`
	LibraryID       string  `json:"libraryId"`
}

// NewItemJSON converts a decoded record. Empty records become the
// placeholder item with a null id and FormatUnknown.
func NewItemJSON(item *rfid.Item) ItemJSON {
	if item.Empty() {
		return ItemJSON{
			Tags: []TagJSON{{
				TagID:  EmptyTagID,
				Format: FormatUnknown,
			}},
		}
	}

	itemID := item.ItemID()
	return ItemJSON{
		ID:   &itemID,
		Type: item.UsageType(),
		Tags: []TagJSON{{
			TagID:           item.CardIDString(),
			ItemID:          &itemID,
			Format:          FormatDanish,
			Type:            item.UsageType(),
			ItemSize:        item.NumberOfParts(),
			IndexInItemPack: item.OrdinalNumber(),
			LibraryID:       item.FullLibraryID(),
		}},
	}
}

// NewItemList converts records in order. The result is never nil so it
// encodes as [] when no tags are present.
func NewItemList(items []*rfid.Item) []ItemJSON {
	list := make([]ItemJSON, 0, len(items))
	for _, item := range items {
		list = append(list, NewItemJSON(item))
	}
	return list
}
