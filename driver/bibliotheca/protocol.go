package bibliotheca

import (
	"encoding/binary"

	"github.com/dotside-studios/rfid-sfl/crc16"
	"github.com/dotside-studios/rfid-sfl/driver"
)

// Frame: D6 | len | cmd | data | crc(2, BE)
//
// len counts cmd and data. The checksum covers len through data.
// Responses carry a status byte between cmd and data.
const (
	sof         = 0xD6
	overhead    = 1 + 1 + 2
	maxFrameLen = overhead + 0xFF
)

// Reader commands.
const (
	cmdGetVersion  = 0x11
	cmdInventory   = 0xFE
	cmdReadBlocks  = 0x02
	cmdWriteBlocks = 0x04
)

// Response status bytes.
const (
	statusOK    = 0x00
	statusNoTag = 0x0A
)

type response struct {
	cmd    byte
	status byte
	data   []byte
}

func buildFrame(cmd byte, data []byte) []byte {
	frame := make([]byte, 0, overhead+1+len(data))
	frame = append(frame, sof, byte(1+len(data)), cmd)
	frame = append(frame, data...)
	return binary.BigEndian.AppendUint16(frame, crc16.Checksum(frame[1:]))
}

// frameLen returns the total length announced by buf, or 0 when buf does
// not hold the length byte yet.
func frameLen(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	return overhead + int(buf[1])
}

func parseResponse(frame []byte) (response, error) {
	if len(frame) < overhead+2 || frame[0] != sof {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "malformed frame % x", frame)
	}
	n := frameLen(frame)
	if n != len(frame) {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "length %d, got %d bytes", n, len(frame))
	}
	want := crc16.Checksum(frame[1 : n-2])
	if got := binary.BigEndian.Uint16(frame[n-2:]); got != want {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "crc %#04x, want %#04x", got, want)
	}
	return response{cmd: frame[2], status: frame[3], data: frame[4 : n-2]}, nil
}

func (r response) err(op string) error {
	switch r.status {
	case statusOK:
		return nil
	case statusNoTag:
		return &driver.Error{Code: driver.ErrCodeNoTag, Op: op, Message: "no tag in range"}
	default:
		return driver.Errorf(driver.ErrCodeProtocol, op, "reader status %#02x", r.status)
	}
}
