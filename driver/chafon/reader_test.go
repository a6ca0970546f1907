package chafon

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dotside-studios/rfid-sfl/driver"
)

// fakeTransport records written reports and replays queued responses split
// into HID reports.
type fakeTransport struct {
	written [][]byte
	reports [][]byte
	closed  bool
}

func (f *fakeTransport) queue(cmd uint16, status byte, data []byte) {
	frame := buildFrame(cmd, append([]byte{status}, data...))
	for off := 0; off < len(frame); off += reportLen {
		report := make([]byte, reportLen)
		end := off + reportLen
		if end > len(frame) {
			end = len(frame)
		}
		copy(report, frame[off:end])
		f.reports = append(f.reports, report)
	}
}

func (f *fakeTransport) Write(report []byte) error {
	f.written = append(f.written, append([]byte{}, report...))
	return nil
}

func (f *fakeTransport) Read(buf []byte, _ time.Duration) (int, error) {
	if len(f.reports) == 0 {
		return 0, driver.ErrTimeout
	}
	n := copy(buf, f.reports[0])
	f.reports = f.reports[1:]
	return n, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

// request returns the frame carried by the i-th written report.
func (f *fakeTransport) request(t *testing.T, i int) []byte {
	t.Helper()
	if i >= len(f.written) {
		t.Fatalf("only %d reports written", len(f.written))
	}
	report := f.written[i]
	if report[0] != 0x00 {
		t.Errorf("report number = %#x, want 0", report[0])
	}
	return report[1 : 1+frameLen(report[1:])]
}

func TestBuildFrame(t *testing.T) {
	got := buildFrame(cmdLED, []byte{LEDGreen})
	want := []byte{0xAA, 0xBB, 0x06, 0x00, 0x00, 0x00, 0x07, 0x01, 0x02, 0x04}
	if !bytes.Equal(got, want) {
		t.Errorf("buildFrame() = % x, want % x", got, want)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	valid := buildFrame(cmdGetModel, []byte{statusOK, 'R'})

	badSum := append([]byte{}, valid...)
	badSum[len(badSum)-1] ^= 0xFF
	badHeader := append([]byte{}, valid...)
	badHeader[0] = 0x00

	tests := []struct {
		name  string
		frame []byte
	}{
		{"too short", valid[:5]},
		{"bad checksum", badSum},
		{"bad header", badHeader},
		{"truncated", valid[:len(valid)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse(tt.frame)
			if driver.CodeOf(err) != driver.ErrCodeProtocol {
				t.Errorf("parseResponse() error = %v, want protocol error", err)
			}
		})
	}
}

func TestReader_Probe(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdGetModel, statusOK, []byte("RH320U-93"))
	r := NewReader(ft, 0)

	if err := r.Probe(); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if req := ft.request(t, 0); !bytes.Equal(req, buildFrame(cmdGetModel, nil)) {
		t.Errorf("request = % x", req)
	}
}

func TestReader_ProbeTimeout(t *testing.T) {
	r := NewReader(&fakeTransport{}, 0)

	if err := r.Probe(); !errors.Is(err, driver.ErrTimeout) {
		t.Errorf("Probe() error = %v, want timeout", err)
	}
}

func TestReader_Inventory(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdInventory, statusOK, []byte{
		2,
		0x00, 0x78, 0x56, 0x34, 0x12, 0x50, 0x01, 0x04, 0xE0,
		0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 0x04, 0xE0,
	})
	r := NewReader(ft, 0)

	uids, err := r.Inventory()
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if len(uids) != 2 {
		t.Fatalf("len(uids) = %d, want 2", len(uids))
	}
	if want := []byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}; !bytes.Equal(uids[0], want) {
		t.Errorf("uids[0] = % x, want % x", uids[0], want)
	}
}

func TestReader_InventoryNoTag(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdInventory, statusNoTag, nil)
	r := NewReader(ft, 0)

	uids, err := r.Inventory()
	if err != nil || len(uids) != 0 {
		t.Errorf("Inventory() = %v, %v, want no tags and no error", uids, err)
	}
}

func TestReader_InventoryTruncated(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdInventory, statusOK, []byte{3, 0x00, 0x01})
	r := NewReader(ft, 0)

	if _, err := r.Inventory(); driver.CodeOf(err) != driver.ErrCodeProtocol {
		t.Errorf("Inventory() error = %v, want protocol error", err)
	}
}

func TestReader_ReadSpansReports(t *testing.T) {
	blocks := make([]byte, driver.FrameBlocks*driver.BlockSize)
	for i := range blocks {
		blocks[i] = byte(i)
	}
	// Pad the response past one report.
	payload := append(append([]byte{}, blocks...), make([]byte, 40)...)

	ft := &fakeTransport{}
	ft.queue(cmdReadBlocks, statusOK, payload)
	r := NewReader(ft, 0)

	uid := []byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}
	frame, err := r.Read(uid)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(frame) != 34 || !bytes.Equal(frame, blocks[:34]) {
		t.Errorf("Read() = % x", frame)
	}

	req := ft.request(t, 0)
	body := req[headerLen+4 : len(req)-1]
	if body[0] != flagHighDataRate|flagAddressed {
		t.Errorf("flags = %#x, want addressed", body[0])
	}
	if !bytes.Equal(body[1:9], driver.ReverseUID(uid)) {
		t.Errorf("uid on air = % x, want LSB first", body[1:9])
	}
	if body[9] != 0 || int(body[10]) != driver.FrameBlocks {
		t.Errorf("blocks = %d+%d, want 0+%d", body[9], body[10], driver.FrameBlocks)
	}
}

func TestReader_ReadNoTag(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdReadBlocks, statusNoTag, nil)
	r := NewReader(ft, 0)

	_, err := r.Read(nil)
	if driver.CodeOf(err) != driver.ErrCodeReadFailed {
		t.Errorf("Read() error = %v, want read failure", err)
	}
	if !errors.Is(err, driver.ErrNoTag) {
		t.Errorf("Read() error = %v, want to wrap ErrNoTag", err)
	}
}

func TestReader_Write(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(cmdWriteBlocks, statusOK, nil)
	r := NewReader(ft, 0)

	frame := bytes.Repeat([]byte{0x11}, 34)
	if err := r.Write(nil, frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	req := ft.request(t, 0)
	body := req[headerLen+4 : len(req)-1]
	if body[0] != flagHighDataRate {
		t.Errorf("flags = %#x, want unaddressed", body[0])
	}
	if body[1] != 0 || body[2] != 9 {
		t.Errorf("blocks = %d+%d, want 0+9", body[1], body[2])
	}
	data := body[3:]
	if len(data) != 36 || !bytes.Equal(data[:34], frame) || data[34] != 0 || data[35] != 0 {
		t.Errorf("data = % x, want frame padded to 36 bytes", data)
	}
}

func TestReader_Close(t *testing.T) {
	ft := &fakeTransport{}
	r := NewReader(ft, time.Second)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !ft.closed {
		t.Error("transport not closed")
	}
}
