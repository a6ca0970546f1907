//go:build linux

package hidraw

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// ioctl requests from linux/hidraw.h.
const (
	hidiocGRawInfo = 0x80084803 // _IOR('H', 0x03, struct hidraw_devinfo)
	iocRead        = 2
	nameBufLen     = 256
)

func hidiocGRawName(n int) uintptr {
	return uintptr(iocRead)<<30 | uintptr(n)<<16 | uintptr('H')<<8 | 0x04
}

// struct hidraw_devinfo
type rawDevInfo struct {
	Bustype uint32
	Vendor  int16
	Product int16
}

// Device is an open hidraw node.
type Device struct {
	fd   int
	path string
}

// Open opens a hidraw node for reading and writing.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, driver.NewOpenError("hidraw.Open", fmt.Errorf("%s: %w", path, err))
	}
	return &Device{fd: fd, path: path}, nil
}

// Enumerate lists every hidraw node the process can open, sorted by path.
func Enumerate() ([]Info, error) {
	paths, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	infos := make([]Info, 0, len(paths))
	for _, path := range paths {
		dev, err := Open(path)
		if err != nil {
			continue
		}
		info, err := dev.Info()
		dev.Close()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Info queries bus, vendor/product ids and the product name.
func (d *Device) Info() (Info, error) {
	var raw rawDevInfo
	if err := d.ioctl(hidiocGRawInfo, unsafe.Pointer(&raw)); err != nil {
		return Info{}, fmt.Errorf("HIDIOCGRAWINFO: %w", err)
	}

	name := make([]byte, nameBufLen)
	if err := d.ioctl(hidiocGRawName(len(name)), unsafe.Pointer(&name[0])); err != nil {
		return Info{}, fmt.Errorf("HIDIOCGRAWNAME: %w", err)
	}
	if i := indexZero(name); i >= 0 {
		name = name[:i]
	}

	return Info{
		Path:    d.path,
		Bus:     raw.Bustype,
		Vendor:  uint16(raw.Vendor),
		Product: uint16(raw.Product),
		Name:    string(name),
	}, nil
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Write sends one output report. The first byte is the report number, 0
// for devices without numbered reports.
func (d *Device) Write(report []byte) error {
	for {
		n, err := unix.Write(d.fd, report)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n != len(report) {
			return fmt.Errorf("short write: %d of %d bytes", n, len(report))
		}
		return nil
	}
}

// Read waits up to timeout for one input report.
func (d *Device) Read(buf []byte, timeout time.Duration) (int, error) {
	pfd := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(timeout)

	for {
		timeoutMs := int(time.Until(deadline) / time.Millisecond)
		if timeoutMs < 1 {
			return 0, driver.ErrTimeout
		}

		n, err := unix.Poll(pfd, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, driver.ErrTimeout
		}
		if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
			return 0, driver.Errorf(driver.ErrCodeNotConnected, "hidraw.Read", "%s: device gone", d.path)
		}

		n, err = unix.Read(d.fd, buf)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Close closes the node.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
