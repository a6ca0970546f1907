// Package crc16 implements the CRC-16/CCITT-FALSE checksum used by the
// library tag data layout and by the Bibliotheca reader framing.
//
// Parameters: polynomial 0x1021, initial register 0xFFFF, bits processed
// most-significant first, no reflection, no final XOR.
package crc16

const (
	// Polynomial is the CCITT generator polynomial.
	Polynomial = 0x1021
	// Initial is the register value before the first byte.
	Initial = 0xFFFF
)

// Checksum computes the checksum of data bit by bit.
//
// Each byte is shifted into the top of the working value and then clocked
// through eight shift/XOR rounds. The register is masked to 16 bits after
// every byte.
func Checksum(data []byte) uint16 {
	sum := uint32(Initial)
	for _, b := range data {
		c := uint32(b) << 8
		for i := 0; i < 8; i++ {
			xor := (sum^c)&0x8000 != 0
			sum <<= 1
			if xor {
				sum ^= Polynomial
			}
			c <<= 1
		}
		sum &= 0xFFFF
	}
	return uint16(sum)
}

// Table is the lookup table for the same polynomial, one entry per byte value.
var Table = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ Polynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// Update continues a checksum over data starting from register crc. It is
// the table-driven equivalent of Checksum: Update(Initial, data) equals
// Checksum(data).
func Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = (crc << 8) ^ Table[byte(crc>>8)^b]
	}
	return crc
}
