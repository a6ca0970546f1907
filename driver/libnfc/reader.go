// Package libnfc carries library tag frames on MIFARE Ultralight and NTAG
// tags through any reader libnfc supports. The frame lives in the user
// pages starting at page 4.
package libnfc

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// FirstPage is the first user memory page.
const FirstPage = 4

// Device is the libnfc device handle.
type Device interface {
	InitiatorInit() error
	Close() error
}

// Tag is a page addressable tag. freefare.UltralightTag implements it.
type Tag interface {
	UID() string
	Connect() error
	Disconnect() error
	ReadPage(page byte) ([4]byte, error)
	WritePage(page byte, data [4]byte) error
}

// Config selects the libnfc device.
type Config struct {
	// Connstring such as "pn532_uart:/dev/ttyUSB0"; empty picks the
	// first device libnfc finds.
	Connstring string
}

// Reader is an open libnfc device.
type Reader struct {
	mu   sync.Mutex
	dev  Device
	scan func() ([]Tag, error)
}

// Open opens and initialises the libnfc device.
func Open(cfg Config) (*Reader, error) {
	dev, err := nfc.Open(cfg.Connstring)
	if err != nil {
		return nil, driver.NewOpenError("libnfc.Open", err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, driver.NewOpenError("libnfc.InitiatorInit", err)
	}
	return NewReader(dev, func() ([]Tag, error) { return ultralightTags(dev) }), nil
}

// NewReader wraps an initialised device and a tag scanner.
func NewReader(dev Device, scan func() ([]Tag, error)) *Reader {
	return &Reader{dev: dev, scan: scan}
}

func ultralightTags(dev nfc.Device) ([]Tag, error) {
	found, err := freefare.GetTags(dev)
	if err != nil {
		return nil, err
	}
	var tags []Tag
	for _, t := range found {
		if ul, ok := t.(freefare.UltralightTag); ok {
			tags = append(tags, ul)
		}
	}
	return tags, nil
}

// Probe re-initialises the device as initiator.
func (r *Reader) Probe() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.dev.InitiatorInit(); err != nil {
		return driver.Errorf(driver.ErrCodeNotConnected, "Probe", "%v", err)
	}
	return nil
}

// Inventory returns the UIDs of the Ultralight family tags in range.
func (r *Reader) Inventory() ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags, err := r.scan()
	if err != nil {
		return nil, driver.NewReadError("Inventory", err)
	}
	uids := make([][]byte, 0, len(tags))
	for _, t := range tags {
		uid, err := hex.DecodeString(t.UID())
		if err != nil {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

// Read returns the tag frame from the user pages.
func (r *Reader) Read(uid []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag, err := r.find(uid)
	if err != nil {
		return nil, driver.NewReadError("Read", err)
	}
	if err := tag.Connect(); err != nil {
		return nil, driver.NewReadError("Read", err)
	}
	defer tag.Disconnect()

	data := make([]byte, 0, driver.FrameBlocks*driver.BlockSize)
	for i := 0; i < driver.FrameBlocks; i++ {
		page, err := tag.ReadPage(byte(FirstPage + i))
		if err != nil {
			return nil, driver.NewReadError("Read", fmt.Errorf("page %d: %w", FirstPage+i, err))
		}
		data = append(data, page[:]...)
	}
	return driver.TrimFrame(data), nil
}

// Write stores a tag frame in the user pages.
func (r *Reader) Write(uid, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag, err := r.find(uid)
	if err != nil {
		return driver.NewWriteError("Write", err)
	}
	if err := tag.Connect(); err != nil {
		return driver.NewWriteError("Write", err)
	}
	defer tag.Disconnect()

	data := driver.PadBlocks(frame)
	for i := 0; i*driver.BlockSize < len(data); i++ {
		var page [4]byte
		copy(page[:], data[i*driver.BlockSize:])
		if err := tag.WritePage(byte(FirstPage+i), page); err != nil {
			return driver.NewWriteError("Write", fmt.Errorf("page %d: %w", FirstPage+i, err))
		}
	}
	return nil
}

// Close closes the libnfc device.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dev.Close()
}

// find returns the tag with the given uid, or the only tag in range when
// uid is empty.
func (r *Reader) find(uid []byte) (Tag, error) {
	tags, err := r.scan()
	if err != nil {
		return nil, err
	}
	if len(uid) == 0 {
		if len(tags) != 1 {
			return nil, fmt.Errorf("%d tags in range: %w", len(tags), driver.ErrNoTag)
		}
		return tags[0], nil
	}
	want := hex.EncodeToString(uid)
	for _, t := range tags {
		if strings.EqualFold(t.UID(), want) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tag %X: %w", uid, driver.ErrNoTag)
}
