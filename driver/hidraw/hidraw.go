// Package hidraw talks to USB HID readers through the Linux hidraw
// interface: one character device per HID interface, raw reports in and
// out.
package hidraw

import (
	"fmt"
	"strings"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// Bus types reported by HIDIOCGRAWINFO.
const (
	BusUSB       = 0x03
	BusBluetooth = 0x05
)

// Info describes one hidraw node.
type Info struct {
	Path    string
	Bus     uint32
	Vendor  uint16
	Product uint16
	Name    string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %04x:%04x %q", i.Path, i.Vendor, i.Product, i.Name)
}

// Match selects hidraw nodes. Zero fields match anything; Name matches as a
// case-insensitive substring.
type Match struct {
	Vendor  uint16
	Product uint16
	Name    string
}

// Matches reports whether info satisfies m.
func (m Match) Matches(info Info) bool {
	if m.Vendor != 0 && m.Vendor != info.Vendor {
		return false
	}
	if m.Product != 0 && m.Product != info.Product {
		return false
	}
	if m.Name != "" && !strings.Contains(strings.ToLower(info.Name), strings.ToLower(m.Name)) {
		return false
	}
	return true
}

// Find returns the first node from Enumerate that satisfies m.
func Find(m Match) (Info, error) {
	infos, err := Enumerate()
	if err != nil {
		return Info{}, err
	}
	for _, info := range infos {
		if m.Matches(info) {
			return info, nil
		}
	}
	return Info{}, driver.ErrNotFound
}
