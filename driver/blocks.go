package driver

import "github.com/dotside-studios/rfid-sfl/rfid"

// BlockSize is the ISO 15693 block size of the supported library tags.
const BlockSize = 4

// FrameBlocks is the number of blocks that hold a full tag frame.
const FrameBlocks = (rfid.FrameLen + BlockSize - 1) / BlockSize

// PadBlocks zero-pads data to a whole number of blocks.
func PadBlocks(data []byte) []byte {
	n := (len(data) + BlockSize - 1) / BlockSize * BlockSize
	out := make([]byte, n)
	copy(out, data)
	return out
}

// TrimFrame cuts a block read down to the frame length.
func TrimFrame(data []byte) []byte {
	if len(data) > rfid.FrameLen {
		return data[:rfid.FrameLen]
	}
	return data
}

// ReverseUID converts between the LSB-first order ISO 15693 uses on air and
// the MSB-first order ("E0 04 ...") used for display.
func ReverseUID(uid []byte) []byte {
	out := make([]byte, len(uid))
	for i, b := range uid {
		out[len(uid)-1-i] = b
	}
	return out
}
