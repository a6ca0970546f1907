package chafon

import (
	"encoding/binary"
	"fmt"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// Frame: AA BB | len(2, LE) | node(2) | cmd(2, LE) | data | xor
//
// len counts every byte after itself. xor covers node through data.
// Responses carry a status byte in front of the data.
const (
	header0 = 0xAA
	header1 = 0xBB

	headerLen   = 4
	minFrameLen = headerLen + 2 + 2 + 1
	reportLen   = 64
)

// Reader commands.
const (
	cmdGetModel    uint16 = 0x0104
	cmdBeep        uint16 = 0x0106
	cmdLED         uint16 = 0x0107
	cmdInventory   uint16 = 0x1000
	cmdReadBlocks  uint16 = 0x1001
	cmdWriteBlocks uint16 = 0x1002
)

// Response status bytes.
const (
	statusOK    = 0x00
	statusNoTag = 0x01
)

// ISO 15693 request flags.
const (
	flagHighDataRate = 0x02
	flagInventory    = 0x04
	flagAddressed    = 0x20
	flag16Slots      = 0x00
)

// LED colours for cmdLED.
const (
	LEDOff   = 0x00
	LEDRed   = 0x01
	LEDGreen = 0x02
)

type response struct {
	cmd    uint16
	status byte
	data   []byte
}

func buildFrame(cmd uint16, data []byte) []byte {
	length := 2 + 2 + len(data) + 1
	frame := make([]byte, 0, headerLen+length)
	frame = append(frame, header0, header1)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(length))
	frame = append(frame, 0x00, 0x00)
	frame = binary.LittleEndian.AppendUint16(frame, cmd)
	frame = append(frame, data...)
	return append(frame, xorSum(frame[headerLen:]))
}

func xorSum(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// frameLen returns the total frame length announced by a header, or 0 if
// buf does not hold a full header yet.
func frameLen(buf []byte) int {
	if len(buf) < headerLen {
		return 0
	}
	return headerLen + int(binary.LittleEndian.Uint16(buf[2:4]))
}

func parseResponse(frame []byte) (response, error) {
	if len(frame) < minFrameLen+1 {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "frame too short (%d bytes)", len(frame))
	}
	if frame[0] != header0 || frame[1] != header1 {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "bad header % x", frame[:2])
	}
	n := frameLen(frame)
	if n != len(frame) {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "length %d, got %d bytes", n, len(frame))
	}
	body := frame[headerLen : n-1]
	if sum := xorSum(body); sum != frame[n-1] {
		return response{}, driver.Errorf(driver.ErrCodeProtocol, "parseResponse", "checksum %#02x, want %#02x", frame[n-1], sum)
	}
	return response{
		cmd:    binary.LittleEndian.Uint16(body[2:4]),
		status: body[4],
		data:   body[5:],
	}, nil
}

func (r response) err(op string) error {
	switch r.status {
	case statusOK:
		return nil
	case statusNoTag:
		return fmt.Errorf("%s: %w", op, driver.ErrNoTag)
	default:
		return driver.Errorf(driver.ErrCodeProtocol, op, "reader status %#02x", r.status)
	}
}
