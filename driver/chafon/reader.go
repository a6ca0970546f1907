// Package chafon drives the Chafon CF-RH320U-93 desktop ISO 15693 reader
// over USB HID.
package chafon

import (
	"fmt"
	"sync"
	"time"

	"github.com/dotside-studios/rfid-sfl/driver"
	"github.com/dotside-studios/rfid-sfl/driver/hidraw"
)

// DefaultTimeout bounds one command round trip.
const DefaultTimeout = 500 * time.Millisecond

const uidLen = 8

// Transport moves HID reports. *hidraw.Device implements it.
type Transport interface {
	Write(report []byte) error
	Read(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// Config selects the HID node to open.
type Config struct {
	// Path of the hidraw node. Empty means search with Match.
	Path    string
	Match   hidraw.Match
	Timeout time.Duration
}

// Reader is an open session with one reader.
type Reader struct {
	mu      sync.Mutex
	t       Transport
	timeout time.Duration
}

// Open finds and opens the reader described by cfg.
func Open(cfg Config) (*Reader, error) {
	path := cfg.Path
	if path == "" {
		info, err := hidraw.Find(cfg.Match)
		if err != nil {
			return nil, fmt.Errorf("chafon: %w", err)
		}
		path = info.Path
	}

	dev, err := hidraw.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chafon: %w", err)
	}
	return NewReader(dev, cfg.Timeout), nil
}

// NewReader wraps an already open transport.
func NewReader(t Transport, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{t: t, timeout: timeout}
}

// Probe asks the reader for its model string.
func (r *Reader) Probe() error {
	_, err := r.Model()
	return err
}

// Model returns the reader's model string.
func (r *Reader) Model() (string, error) {
	resp, err := r.command(cmdGetModel, nil)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// LED switches the reader LED colour.
func (r *Reader) LED(colour byte) error {
	_, err := r.command(cmdLED, []byte{colour})
	return err
}

// Beep sounds the buzzer for the given number of 10ms units.
func (r *Reader) Beep(units byte) error {
	_, err := r.command(cmdBeep, []byte{units})
	return err
}

// Inventory returns the UIDs of all tags in range, MSB first.
func (r *Reader) Inventory() ([][]byte, error) {
	data, err := r.command(cmdInventory, []byte{flagHighDataRate | flagInventory | flag16Slots, 0x00})
	if driver.IsNoTag(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	count := int(data[0])
	entries := data[1:]
	if len(entries) < count*(1+uidLen) {
		return nil, driver.Errorf(driver.ErrCodeProtocol, "Inventory", "%d tags announced, %d bytes", count, len(entries))
	}

	uids := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		entry := entries[i*(1+uidLen) : (i+1)*(1+uidLen)]
		// entry[0] is the DSFID
		uids = append(uids, driver.ReverseUID(entry[1:]))
	}
	return uids, nil
}

// ReadBlocks reads count blocks starting at first. A nil uid addresses
// whichever tag answers.
func (r *Reader) ReadBlocks(uid []byte, first, count int) ([]byte, error) {
	req := append(addressing(uid), byte(first), byte(count))
	data, err := r.command(cmdReadBlocks, req)
	if err != nil {
		return nil, driver.NewReadError("ReadBlocks", err)
	}
	if len(data) < count*driver.BlockSize {
		return nil, driver.Errorf(driver.ErrCodeReadFailed, "ReadBlocks", "got %d bytes, want %d", len(data), count*driver.BlockSize)
	}
	return data[:count*driver.BlockSize], nil
}

// WriteBlocks writes data, padded to whole blocks, starting at first.
func (r *Reader) WriteBlocks(uid []byte, first int, data []byte) error {
	data = driver.PadBlocks(data)
	req := append(addressing(uid), byte(first), byte(len(data)/driver.BlockSize))
	req = append(req, data...)
	if _, err := r.command(cmdWriteBlocks, req); err != nil {
		return driver.NewWriteError("WriteBlocks", err)
	}
	return nil
}

// Read returns the tag frame stored from block 0.
func (r *Reader) Read(uid []byte) ([]byte, error) {
	data, err := r.ReadBlocks(uid, 0, driver.FrameBlocks)
	if err != nil {
		return nil, err
	}
	return driver.TrimFrame(data), nil
}

// Write stores a tag frame from block 0.
func (r *Reader) Write(uid, frame []byte) error {
	return r.WriteBlocks(uid, 0, frame)
}

// Close releases the transport.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Close()
}

func addressing(uid []byte) []byte {
	if len(uid) == 0 {
		return []byte{flagHighDataRate}
	}
	return append([]byte{flagHighDataRate | flagAddressed}, driver.ReverseUID(uid)...)
}

// command sends one request and collects the response reports.
func (r *Reader) command(cmd uint16, data []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame := buildFrame(cmd, data)
	for off := 0; off < len(frame); off += reportLen {
		end := off + reportLen
		if end > len(frame) {
			end = len(frame)
		}
		report := make([]byte, 1+reportLen)
		copy(report[1:], frame[off:end])
		if err := r.t.Write(report); err != nil {
			return nil, driver.Errorf(driver.ErrCodeNotConnected, "command", "write %#04x: %v", cmd, err)
		}
	}

	var buf []byte
	chunk := make([]byte, reportLen)
	for {
		n, err := r.t.Read(chunk, r.timeout)
		if err != nil {
			return nil, fmt.Errorf("chafon: command %#04x: %w", cmd, err)
		}
		buf = append(buf, chunk[:n]...)
		if total := frameLen(buf); total > 0 && len(buf) >= total {
			buf = buf[:total]
			break
		}
	}

	resp, err := parseResponse(buf)
	if err != nil {
		return nil, err
	}
	if resp.cmd != cmd {
		return nil, driver.Errorf(driver.ErrCodeProtocol, "command", "response to %#04x, want %#04x", resp.cmd, cmd)
	}
	if err := resp.err(fmt.Sprintf("command %#04x", cmd)); err != nil {
		return nil, err
	}
	return resp.data, nil
}
