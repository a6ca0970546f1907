// Package bibliotheca drives the Bibliotheca 210 staff station reader. The
// reader sits behind an FTDI USB serial bridge and speaks a CRC framed
// command protocol.
package bibliotheca

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/serial"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// Defaults for the FTDI bridge.
const (
	DefaultBaudRate = 115200
	DefaultTimeout  = time.Second
	DefaultVendor   = 0x0d2c
	DefaultProduct  = 0x032a
)

const uidLen = 8

// Config selects and configures the serial port.
type Config struct {
	// Port is the serial device. Empty means search by Vendor/Product.
	Port     string
	BaudRate int
	Vendor   uint16
	Product  uint16
	Timeout  time.Duration
}

// Reader is an open session with one reader.
type Reader struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	timeout time.Duration
}

// Open opens the serial port described by cfg.
func Open(cfg Config) (*Reader, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	address := cfg.Port
	if address == "" {
		var err error
		if address, err = FindPort(cfg.Vendor, cfg.Product); err != nil {
			return nil, fmt.Errorf("bibliotheca: %w", err)
		}
	}

	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, driver.NewOpenError("bibliotheca.Open", fmt.Errorf("%s: %w", address, err))
	}
	return NewReader(port, cfg.Timeout), nil
}

// NewReader wraps an already open port.
func NewReader(port io.ReadWriteCloser, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{port: port, timeout: timeout}
}

// FindPort looks for a USB serial port with the given vendor and product
// id in sysfs.
func FindPort(vendor, product uint16) (string, error) {
	ttys, err := filepath.Glob("/sys/class/tty/ttyUSB*")
	if err != nil {
		return "", err
	}
	sort.Strings(ttys)

	for _, tty := range ttys {
		dev, err := filepath.EvalSymlinks(filepath.Join(tty, "device"))
		if err != nil {
			continue
		}
		// device -> usb interface -> usb device
		usbDev := filepath.Dir(dev)
		if readHexID(filepath.Join(usbDev, "idVendor")) == vendor &&
			readHexID(filepath.Join(usbDev, "idProduct")) == product {
			return "/dev/" + filepath.Base(tty), nil
		}
	}
	return "", driver.ErrNotFound
}

func readHexID(path string) uint16 {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// Probe asks the reader for its firmware version.
func (r *Reader) Probe() error {
	_, err := r.Version()
	return err
}

// Version returns the firmware version string.
func (r *Reader) Version() (string, error) {
	data, err := r.command(cmdGetVersion, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Inventory returns the UIDs of every tag in the field, MSB first.
func (r *Reader) Inventory() ([][]byte, error) {
	data, err := r.command(cmdInventory, nil)
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
	if len(data)-1 < count*uidLen {
		return nil, driver.Errorf(driver.ErrCodeProtocol, "Inventory", "%d tags announced, %d bytes", count, len(data)-1)
	}
	uids := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		uid := data[1+i*uidLen : 1+(i+1)*uidLen]
		uids = append(uids, driver.ReverseUID(uid))
	}
	return uids, nil
}

// ReadBlocks reads count blocks from the tag with the given uid.
func (r *Reader) ReadBlocks(uid []byte, first, count int) ([]byte, error) {
	if len(uid) != uidLen {
		return nil, driver.NewReadError("ReadBlocks", fmt.Errorf("uid must be %d bytes", uidLen))
	}
	req := append(driver.ReverseUID(uid), byte(first), byte(count))
	data, err := r.command(cmdReadBlocks, req)
	if err != nil {
		return nil, driver.NewReadError("ReadBlocks", err)
	}
	// Each block is preceded by its security status byte.
	out := make([]byte, 0, count*driver.BlockSize)
	for i := 0; i < count; i++ {
		off := i * (1 + driver.BlockSize)
		if off+1+driver.BlockSize > len(data) {
			return nil, driver.Errorf(driver.ErrCodeReadFailed, "ReadBlocks", "got %d of %d blocks", i, count)
		}
		out = append(out, data[off+1:off+1+driver.BlockSize]...)
	}
	return out, nil
}

// WriteBlocks writes data, padded to whole blocks, to the tag with the
// given uid.
func (r *Reader) WriteBlocks(uid []byte, first int, data []byte) error {
	if len(uid) != uidLen {
		return driver.NewWriteError("WriteBlocks", fmt.Errorf("uid must be %d bytes", uidLen))
	}
	data = driver.PadBlocks(data)
	req := append(driver.ReverseUID(uid), byte(first), byte(len(data)/driver.BlockSize))
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

// Close closes the serial port.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port.Close()
}

func (r *Reader) command(cmd byte, data []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.port.Write(buildFrame(cmd, data)); err != nil {
		return nil, driver.Errorf(driver.ErrCodeNotConnected, "command", "write %#02x: %v", cmd, err)
	}

	frame, err := r.readFrame()
	if err != nil {
		return nil, fmt.Errorf("bibliotheca: command %#02x: %w", cmd, err)
	}
	resp, err := parseResponse(frame)
	if err != nil {
		return nil, err
	}
	if resp.cmd != cmd {
		return nil, driver.Errorf(driver.ErrCodeProtocol, "command", "response to %#02x, want %#02x", resp.cmd, cmd)
	}
	if err := resp.err(fmt.Sprintf("command %#02x", cmd)); err != nil {
		return nil, err
	}
	return resp.data, nil
}

// readFrame reads until one full frame has arrived, skipping noise before
// the start byte.
func (r *Reader) readFrame() ([]byte, error) {
	deadline := time.Now().Add(r.timeout)
	buf := make([]byte, 0, maxFrameLen)
	chunk := make([]byte, maxFrameLen)

	for {
		if time.Now().After(deadline) {
			return nil, driver.ErrTimeout
		}
		n, err := r.port.Read(chunk)
		if err != nil && n == 0 {
			if isTimeout(err) {
				return nil, driver.ErrTimeout
			}
			return nil, err
		}
		buf = append(buf, chunk[:n]...)

		if i := indexSOF(buf); i > 0 {
			buf = buf[i:]
		} else if i < 0 {
			buf = buf[:0]
			continue
		}
		if total := frameLen(buf); total > 0 && len(buf) >= total {
			return buf[:total], nil
		}
	}
}

// isTimeout matches the serial port's read timeout, which is reported as a
// plain error.
func isTimeout(err error) bool {
	return errors.Is(err, io.EOF) || strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func indexSOF(buf []byte) int {
	for i, b := range buf {
		if b == sof {
			return i
		}
	}
	return -1
}
