// Package pcsc reads and writes library tags on PC/SC contactless readers
// that expose ISO 15693 memory through the storage card pseudo-APDUs.
package pcsc

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/ebfe/scard"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// Context is the subset of a PC/SC context the reader needs.
type Context interface {
	ListReaders() ([]string, error)
	Connect(reader string) (Card, error)
	Release() error
}

// Card is a connected card.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect() error
}

// Config selects the PC/SC reader.
type Config struct {
	// Reader name; empty picks the first contactless reader.
	Reader string
}

// Reader is a session with one PC/SC reader. PC/SC presents one card at a
// time, so inventories hold at most one UID.
type Reader struct {
	mu   sync.Mutex
	ctx  Context
	name string
}

// Open establishes a PC/SC context and selects a reader.
func Open(cfg Config) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, driver.NewOpenError("pcsc.Open", err)
	}
	r, err := NewReader(&scardContext{ctx: ctx}, cfg.Reader)
	if err != nil {
		ctx.Release()
		return nil, err
	}
	return r, nil
}

// NewReader selects a reader on an established context.
func NewReader(ctx Context, name string) (*Reader, error) {
	if name == "" {
		readers, err := ctx.ListReaders()
		if err != nil {
			return nil, driver.NewOpenError("pcsc.ListReaders", err)
		}
		readers = filterContactless(readers)
		if len(readers) == 0 {
			return nil, fmt.Errorf("pcsc: %w", driver.ErrNotFound)
		}
		name = readers[0]
	}
	return &Reader{ctx: ctx, name: name}, nil
}

// Name returns the PC/SC reader name.
func (r *Reader) Name() string { return r.name }

// Probe checks that the reader is still attached.
func (r *Reader) Probe() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	readers, err := r.ctx.ListReaders()
	if err != nil {
		return driver.Errorf(driver.ErrCodeNotConnected, "Probe", "list readers: %v", err)
	}
	for _, name := range readers {
		if name == r.name {
			return nil
		}
	}
	return driver.Errorf(driver.ErrCodeNotConnected, "Probe", "reader %q detached", r.name)
}

// Inventory returns the UID of the card on the reader, if any.
func (r *Reader) Inventory() ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, err := r.connect()
	if driver.IsNoTag(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer card.Disconnect()

	uid, err := cardUID(card)
	if err != nil {
		return nil, err
	}
	return [][]byte{uid}, nil
}

// Read returns the tag frame stored from block 0.
func (r *Reader) Read(uid []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, err := r.connectTo(uid)
	if err != nil {
		return nil, driver.NewReadError("Read", err)
	}
	defer card.Disconnect()

	data := make([]byte, 0, driver.FrameBlocks*driver.BlockSize)
	for block := 0; block < driver.FrameBlocks; block++ {
		raw, err := card.Transmit(readBlockAPDU(byte(block)))
		if err != nil {
			return nil, driver.NewReadError("Read", blockError("transmit", block, err))
		}
		resp, err := checkResponse("Read", raw)
		if err != nil {
			return nil, driver.NewReadError("Read", blockError("status", block, err))
		}
		data = append(data, resp...)
	}
	return driver.TrimFrame(data), nil
}

// Write stores a tag frame from block 0.
func (r *Reader) Write(uid, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, err := r.connectTo(uid)
	if err != nil {
		return driver.NewWriteError("Write", err)
	}
	defer card.Disconnect()

	data := driver.PadBlocks(frame)
	for block := 0; block*driver.BlockSize < len(data); block++ {
		chunk := data[block*driver.BlockSize : (block+1)*driver.BlockSize]
		raw, err := card.Transmit(writeBlockAPDU(byte(block), chunk))
		if err != nil {
			return driver.NewWriteError("Write", blockError("transmit", block, err))
		}
		if _, err := checkResponse("Write", raw); err != nil {
			return driver.NewWriteError("Write", blockError("status", block, err))
		}
	}
	return nil
}

// Close releases the PC/SC context.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Release()
}

func (r *Reader) connect() (Card, error) {
	card, err := r.ctx.Connect(r.name)
	if err != nil {
		if isNoCard(err) {
			return nil, fmt.Errorf("pcsc: %s: %w", r.name, driver.ErrNoTag)
		}
		return nil, driver.Errorf(driver.ErrCodeNotConnected, "connect", "%s: %v", r.name, err)
	}
	return card, nil
}

// connectTo connects and, when uid is set, checks that the card on the
// reader is the expected one.
func (r *Reader) connectTo(uid []byte) (Card, error) {
	card, err := r.connect()
	if err != nil {
		return nil, err
	}
	if len(uid) == 0 {
		return card, nil
	}
	got, err := cardUID(card)
	if err != nil {
		card.Disconnect()
		return nil, err
	}
	if !bytes.Equal(got, uid) {
		card.Disconnect()
		return nil, fmt.Errorf("pcsc: card %X on reader, want %X: %w", got, uid, driver.ErrNoTag)
	}
	return card, nil
}

// cardUID reads the UID and returns it MSB first.
func cardUID(card Card) ([]byte, error) {
	raw, err := card.Transmit(getUIDAPDU())
	if err != nil {
		return nil, driver.NewReadError("GetUID", err)
	}
	uid, err := checkResponse("GetUID", raw)
	if err != nil {
		return nil, err
	}
	// ISO 15693 UIDs come back LSB first; the manufacturer byte E0 ends up last.
	if len(uid) == 8 && uid[7] == 0xE0 {
		uid = driver.ReverseUID(uid)
	}
	return uid, nil
}

func isNoCard(err error) bool {
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "no card") ||
		strings.Contains(errLower, "no smart card") ||
		strings.Contains(errLower, "card is not present") ||
		strings.Contains(errLower, "card not present") ||
		strings.Contains(errLower, "removed")
}

// filterContactless drops SAM slots.
func filterContactless(readers []string) []string {
	var filtered []string
	for _, name := range readers {
		if strings.Contains(strings.ToUpper(name), "SAM") {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}

type scardContext struct {
	ctx *scard.Context
}

func (c *scardContext) ListReaders() ([]string, error) { return c.ctx.ListReaders() }
func (c *scardContext) Release() error { return c.ctx.Release() }

func (c *scardContext) Connect(reader string) (Card, error) {
	card, err := c.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, err
	}
	return &scardCard{card: card}, nil
}

type scardCard struct {
	card *scard.Card
}

func (c *scardCard) Transmit(cmd []byte) ([]byte, error) { return c.card.Transmit(cmd) }
func (c *scardCard) Disconnect() error { return c.card.Disconnect(scard.LeaveCard) }
