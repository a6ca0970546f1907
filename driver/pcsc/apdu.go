package pcsc

import (
	"fmt"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// PC/SC pseudo-APDU instructions for storage cards.
const (
	claPCSC       = 0xFF
	insGetData    = 0xCA
	insReadBinary = 0xB0
	insUpdateBin  = 0xD6
)

// Status words
const (
	sw1Success = 0x90
	sw2Success = 0x00
)

func getUIDAPDU() []byte {
	return []byte{claPCSC, insGetData, 0x00, 0x00, 0x00}
}

func readBlockAPDU(block byte) []byte {
	return []byte{claPCSC, insReadBinary, 0x00, block, driver.BlockSize}
}

func writeBlockAPDU(block byte, data []byte) []byte {
	cmd := []byte{claPCSC, insUpdateBin, 0x00, block, byte(len(data))}
	return append(cmd, data...)
}

// checkResponse strips and verifies the trailing status word.
func checkResponse(op string, raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, driver.Errorf(driver.ErrCodeProtocol, op, "response too short")
	}
	sw1, sw2 := raw[len(raw)-2], raw[len(raw)-1]
	if sw1 != sw1Success || sw2 != sw2Success {
		return nil, driver.Errorf(driver.ErrCodeProtocol, op, "SW1=%02X SW2=%02X", sw1, sw2)
	}
	return raw[:len(raw)-2], nil
}

func blockError(op string, block int, err error) error {
	return fmt.Errorf("%s block %d: %w", op, block, err)
}
