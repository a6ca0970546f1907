//go:build !linux

package hidraw

import (
	"time"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// Device is an open hidraw node. hidraw exists only on Linux.
type Device struct {
	path string
}

// Open always fails outside Linux.
func Open(path string) (*Device, error) {
	return nil, driver.ErrUnsupported
}

// Enumerate always fails outside Linux.
func Enumerate() ([]Info, error) {
	return nil, driver.ErrUnsupported
}

func (d *Device) Path() string { return d.path }
func (d *Device) Info() (Info, error) { return Info{}, driver.ErrUnsupported }
func (d *Device) Write(report []byte) error { return driver.ErrUnsupported }
func (d *Device) Read(buf []byte, _ time.Duration) (int, error) { return 0, driver.ErrUnsupported }
func (d *Device) Close() error { return nil }
