package rfid

import (
	"bytes"
	"unicode/utf8"

	"github.com/dotside-studios/rfid-sfl/crc16"
)

// Frame layout offsets. The checksum sits between the item id and the
// country code; every other field keeps its position in the data area.
const (
	offsetVersion   = 0
	offsetParts     = 1
	offsetOrdinal   = 2
	offsetItemID    = 3
	offsetChecksum  = offsetItemID + ItemIDLen
	offsetCountry   = offsetChecksum + 2
	offsetLibraryID = offsetCountry + CountryLen
)

const (
	// MinFrameLen is the shortest frame Decode accepts: the header, the item
	// id, the checksum and the country code.
	MinFrameLen = offsetLibraryID

	// DataLen is the size of the checksummed data area (the frame without
	// its two checksum bytes).
	DataLen = offsetItemID + ItemIDLen + CountryLen + LibraryIDLen

	// FrameLen is the size of a frame produced by Encode.
	FrameLen = DataLen + 2
)

// Decode parses a raw tag frame.
//
// A frame whose checksum does not match yields an empty Item and a nil
// error. A frame shorter than MinFrameLen yields ErrFrameTooShort, and a
// frame with a valid checksum but non UTF-8 text yields ErrInvalidText.
// The returned Item never carries a card id.
func Decode(frame []byte) (*Item, error) {
	if len(frame) < MinFrameLen {
		return nil, ErrFrameTooShort
	}

	stored := uint16(frame[offsetChecksum]) | uint16(frame[offsetChecksum+1])<<8
	if crc16.Checksum(dataArea(frame)) != stored {
		return newEmptyItem(), nil
	}

	itemID, ok := trimText(frame[offsetItemID:offsetChecksum])
	if !ok {
		return nil, ErrInvalidText
	}
	country, ok := trimText(frame[offsetCountry:offsetLibraryID])
	if !ok {
		return nil, ErrInvalidText
	}
	libraryID, ok := trimText(frame[offsetLibraryID:])
	if !ok {
		return nil, ErrInvalidText
	}

	return &Item{
		usageType:       frame[offsetVersion] >> 4,
		standardVersion: frame[offsetVersion] & maxNibble,
		numberOfParts:   frame[offsetParts],
		ordinalNumber:   frame[offsetOrdinal],
		itemID:          itemID,
		country:         country,
		libraryID:       libraryID,
	}, nil
}

// Encode renders an item into a FrameLen byte frame. Text fields are
// zero-padded to their fixed widths; the card id is not part of the frame.
func Encode(item *Item) []byte {
	data := make([]byte, DataLen)
	data[offsetVersion] = item.usageType<<4 | item.standardVersion&maxNibble
	data[offsetParts] = item.numberOfParts
	data[offsetOrdinal] = item.ordinalNumber
	copy(data[offsetItemID:offsetItemID+ItemIDLen], item.itemID)
	copy(data[offsetChecksum:offsetChecksum+CountryLen], item.country)
	copy(data[offsetChecksum+CountryLen:], item.libraryID)

	crc := crc16.Checksum(data)

	frame := make([]byte, 0, FrameLen)
	frame = append(frame, data[:offsetChecksum]...)
	frame = append(frame, byte(crc), byte(crc>>8))
	frame = append(frame, data[offsetChecksum:]...)
	return frame
}

// dataArea returns the frame with its checksum bytes removed, zero-filled
// to at least DataLen bytes. Short tag memories leave the tail of the
// library id unwritten; the fill stands in for it.
func dataArea(frame []byte) []byte {
	n := len(frame) - 2
	if n < DataLen {
		n = DataLen
	}
	data := make([]byte, n)
	copy(data, frame[:offsetChecksum])
	copy(data[offsetChecksum:], frame[offsetCountry:])
	return data
}

// trimText strips trailing zero bytes only and validates UTF-8.
func trimText(b []byte) (string, bool) {
	b = bytes.TrimRight(b, "\x00")
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
