package device

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dotside-studios/rfid-sfl/crc16"
	"github.com/dotside-studios/rfid-sfl/rfid"
)

var (
	uidA = []byte{0xE0, 0x04, 0x01, 0x50, 0x00, 0x00, 0x00, 0x0A}
	uidB = []byte{0xE0, 0x04, 0x01, 0x50, 0x00, 0x00, 0x00, 0x0B}
	uidC = []byte{0xE0, 0x04, 0x01, 0x50, 0x00, 0x00, 0x00, 0x0C}
)

func newItem(t *testing.T, itemID string) *rfid.Item {
	t.Helper()
	item := rfid.NewItem()
	if err := item.SetItemID(itemID); err != nil {
		t.Fatalf("SetItemID() error = %v", err)
	}
	if err := item.SetCountry("DK"); err != nil {
		t.Fatalf("SetCountry() error = %v", err)
	}
	if err := item.SetLibraryID("775100"); err != nil {
		t.Fatalf("SetLibraryID() error = %v", err)
	}
	return item
}

// invalidTextFrame has a valid checksum but a non UTF-8 item id.
func invalidTextFrame() []byte {
	data := make([]byte, rfid.DataLen)
	data[0] = 0x81
	data[3] = 0xFF
	crc := crc16.Checksum(data)
	frame := append([]byte{}, data[:19]...)
	frame = append(frame, byte(crc), byte(crc>>8))
	return append(frame, data[19:]...)
}

func connected(t *testing.T, model Model, s *MockSession) *Reader {
	t.Helper()
	r := NewReader(model, s.Driver())
	r.Connect()
	if !r.IsConnected() {
		t.Fatal("reader not connected")
	}
	return r
}

func TestReader_ConnectIsIdempotent(t *testing.T) {
	s := NewMockSession()
	r := NewReader(BibliothecaModel, s.Driver())

	r.Connect()
	r.Connect()
	r.Connect()

	if s.Opens != 1 {
		t.Errorf("Opens = %d, want 1", s.Opens)
	}
	want := []string{"Open", "Probe", "Probe"}
	if len(s.CallLog) != len(want) {
		t.Fatalf("CallLog = %v, want %v", s.CallLog, want)
	}
	for i := range want {
		if s.CallLog[i] != want[i] {
			t.Errorf("CallLog[%d] = %s, want %s", i, s.CallLog[i], want[i])
		}
	}
}

func TestReader_ConnectReopensDeadSession(t *testing.T) {
	s := NewMockSession()
	r := connected(t, BibliothecaModel, s)

	s.ProbeError = errors.New("usb reset")
	r.Connect()

	if s.Opens != 2 {
		t.Errorf("Opens = %d, want 2", s.Opens)
	}
	if !r.IsConnected() {
		t.Error("IsConnected() = false after reopen")
	}
}

func TestReader_ConnectFailureLeavesDisconnected(t *testing.T) {
	s := NewMockSession()
	r := connected(t, BibliothecaModel, s)

	s.ProbeError = errors.New("usb reset")
	s.OpenError = errors.New("unplugged")
	r.Connect()

	if r.IsConnected() {
		t.Error("IsConnected() = true, want false")
	}
	if !s.Closed {
		t.Error("dead session not closed")
	}

	s.OpenError = nil
	s.ProbeError = nil
	r.Connect()
	if !r.IsConnected() {
		t.Error("IsConnected() = false after replug")
	}
}

func TestReader_DisconnectedRead(t *testing.T) {
	s := NewMockSession()
	s.OpenError = errors.New("unplugged")
	s.PutItem(uidA, newItem(t, "1"))
	r := NewReader(BibliothecaModel, s.Driver())
	r.Connect()

	items := r.Items()
	if items == nil || len(items) != 0 {
		t.Errorf("Items() = %v, want empty slice", items)
	}
}

func TestReader_DisconnectedWrite(t *testing.T) {
	s := NewMockSession()
	s.OpenError = errors.New("unplugged")
	r := NewReader(BibliothecaModel, s.Driver())
	r.Connect()

	items := []*rfid.Item{newItem(t, "1"), newItem(t, "2"), newItem(t, "3")}
	results := r.WriteTags(items)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, res := range results {
		if res.Success || res.Error == nil || res.Error.Message != MsgNotConnected {
			t.Errorf("results[%d] = %+v, want %q", i, res, MsgNotConnected)
		}
	}
	if s.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", s.Writes())
	}
}

func TestReader_SingleTagWriteBatching(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "old"))
	r := connected(t, ChafonModel, s)

	a, b := newItem(t, "1"), newItem(t, "2")
	a.SetCardID(uidA)
	b.SetCardID(uidB)
	results := r.WriteTags([]*rfid.Item{a, b})

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, res := range results {
		if res.Success || res.Error.Type != WriteErrorType || res.Error.Message != MsgSingleTagOnly {
			t.Errorf("results[%d] = %+v, want %q", i, res, MsgSingleTagOnly)
		}
	}
	if results[0].ID != "E00401500000000A" || results[1].ID != "E00401500000000B" {
		t.Errorf("ids = %s, %s", results[0].ID, results[1].ID)
	}
	if s.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", s.Writes())
	}
}

func TestReader_SingleTagRestrictionBeforeConnectivity(t *testing.T) {
	s := NewMockSession()
	s.OpenError = errors.New("unplugged")
	r := NewReader(ChafonModel, s.Driver())
	r.Connect()

	results := r.WriteTags([]*rfid.Item{newItem(t, "1"), newItem(t, "2")})
	for i, res := range results {
		if res.Error == nil || res.Error.Message != MsgSingleTagOnly {
			t.Errorf("results[%d] = %+v, want %q", i, res, MsgSingleTagOnly)
		}
	}
}

func TestReader_ReadOnly(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "1"))
	model := Model{Name: "ro", Capabilities: Capabilities{MultiTag: true, ReadOnly: true}}
	r := connected(t, model, s)

	item := newItem(t, "2")
	item.SetCardID(uidA)
	results := r.WriteTags([]*rfid.Item{item})

	if len(results) != 1 || results[0].Error == nil || results[0].Error.Message != MsgReadOnly {
		t.Errorf("results = %+v, want %q", results, MsgReadOnly)
	}
	if s.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", s.Writes())
	}
}

func TestReader_Items(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "5010000123"))
	s.PutFrame(uidB, invalidTextFrame())
	corrupt := rfid.Encode(newItem(t, "5010000124"))
	corrupt[5] ^= 0x01
	s.PutFrame(uidC, corrupt)
	r := connected(t, BibliothecaModel, s)

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2 (invalid text dropped)", len(items))
	}
	if items[0].ItemID() != "5010000123" || !bytes.Equal(items[0].CardID(), uidA) {
		t.Errorf("items[0] = %v", items[0])
	}
	if !items[1].Empty() || !bytes.Equal(items[1].CardID(), uidC) {
		t.Errorf("items[1] = %v, want empty item with card id", items[1])
	}
}

func TestReader_ItemsSkipsUnreadableTags(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "1"))
	s.UIDs = append(s.UIDs, uidB) // in range but no frame
	r := connected(t, BibliothecaModel, s)

	if items := r.Items(); len(items) != 1 {
		t.Errorf("len(Items()) = %d, want 1", len(items))
	}
}

func TestReader_ItemsInventoryError(t *testing.T) {
	s := NewMockSession()
	s.InventoryError = errors.New("bus error")
	r := connected(t, BibliothecaModel, s)

	if items := r.Items(); len(items) != 0 {
		t.Errorf("Items() = %v, want empty", items)
	}
}

func TestReader_SingleTagReaderNeedsExactlyOneTag(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "1"))
	r := connected(t, ChafonModel, s)

	if items := r.Items(); len(items) != 1 {
		t.Fatalf("one tag: len(Items()) = %d, want 1", len(items))
	}

	s.PutItem(uidB, newItem(t, "2"))
	if items := r.Items(); len(items) != 0 {
		t.Errorf("two tags: len(Items()) = %d, want 0", len(items))
	}
}

func TestReader_WriteThenRead(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "old"))
	r := connected(t, ChafonModel, s)

	item := newItem(t, "5010000999")
	item.SetCardID(uidA)
	results := r.WriteTags([]*rfid.Item{item})
	if len(results) != 1 || !results[0].Success || results[0].Error != nil {
		t.Fatalf("WriteTags() = %+v", results)
	}
	if results[0].ID != "E00401500000000A" {
		t.Errorf("ID = %s", results[0].ID)
	}

	items := r.Items()
	if len(items) != 1 || items[0].ItemID() != "5010000999" || items[0].FullLibraryID() != "DK-775100" {
		t.Errorf("Items() = %v", items)
	}
}

func TestReader_WriteWithoutCardID(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "old"))
	r := connected(t, BibliothecaModel, s)

	results := r.WriteTags([]*rfid.Item{newItem(t, "new")})
	if !results[0].Success {
		t.Fatalf("WriteTags() = %+v, want success on the only tag", results)
	}
	if got, _ := rfid.Decode(s.Frames["E00401500000000A"]); got.ItemID() != "new" {
		t.Errorf("stored item = %v", got)
	}

	s.PutItem(uidB, newItem(t, "other"))
	results = r.WriteTags([]*rfid.Item{newItem(t, "x"), newItem(t, "y")})
	for i, res := range results {
		if res.Success || res.Error.Message != MsgWriteFailed {
			t.Errorf("two tags: results[%d] = %+v, want %q", i, res, MsgWriteFailed)
		}
	}
}

func TestReader_WriteFailureIsPerRecord(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "a"))
	s.PutItem(uidC, newItem(t, "c"))
	r := connected(t, BibliothecaModel, s)

	a, b, c := newItem(t, "1"), newItem(t, "2"), newItem(t, "3")
	a.SetCardID(uidA)
	b.SetCardID(uidB) // not in range
	c.SetCardID(uidC)
	results := r.WriteTags([]*rfid.Item{a, b, c})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("success = %v %v %v, want true false true", results[0].Success, results[1].Success, results[2].Success)
	}
	if results[1].Error.Message != MsgWriteFailed || results[1].ID != "E00401500000000B" {
		t.Errorf("results[1] = %+v", results[1])
	}
}

// recordingLogger keeps the messages logged at warn level.
type recordingLogger struct {
	noopLogger
	warnings []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }

func TestReader_WriteInventoryErrorIsLogged(t *testing.T) {
	s := NewMockSession()
	s.PutItem(uidA, newItem(t, "old"))
	logger := &recordingLogger{}
	r := NewReader(BibliothecaModel, s.Driver(), WithLogger(logger))
	r.Connect()

	s.InventoryError = errors.New("bus error")
	results := r.WriteTags([]*rfid.Item{newItem(t, "new")})

	if results[0].Success || results[0].Error.Message != MsgWriteFailed {
		t.Errorf("WriteTags() = %+v, want %q", results, MsgWriteFailed)
	}
	if len(logger.warnings) != 1 || logger.warnings[0] != "inventory failed" {
		t.Errorf("warnings = %v, want [inventory failed]", logger.warnings)
	}
	if s.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", s.Writes())
	}
}

func TestReader_EmptyBatch(t *testing.T) {
	r := connected(t, ChafonModel, NewMockSession())

	if results := r.WriteTags(nil); len(results) != 0 {
		t.Errorf("WriteTags(nil) = %v, want empty", results)
	}
}

func TestReader_Close(t *testing.T) {
	s := NewMockSession()
	r := connected(t, ChafonModel, s)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.IsConnected() || !s.Closed {
		t.Error("session still open after Close")
	}
}

func TestDecodeTag_StandardLengthFallback(t *testing.T) {
	frame := rfid.Encode(newItem(t, "5010000123"))
	// Foreign data after the 32 byte data area.
	frame[32], frame[33] = 0x55, 0xAA

	item, err := decodeTag(frame)
	if err != nil {
		t.Fatalf("decodeTag() error = %v", err)
	}
	if item.Empty() || item.ItemID() != "5010000123" {
		t.Errorf("decodeTag() = %v", item)
	}
}

func TestDecodeTag_CorruptStaysEmpty(t *testing.T) {
	frame := rfid.Encode(newItem(t, "5010000123"))
	frame[4] ^= 0x10

	item, err := decodeTag(frame)
	if err != nil || !item.Empty() {
		t.Errorf("decodeTag() = %v, %v, want empty item", item, err)
	}
}

func TestSimulator(t *testing.T) {
	var d Device = Simulator{}
	d.Connect()

	if !d.IsConnected() || !d.Capabilities().MultiTag {
		t.Errorf("simulator state = %v %+v", d.IsConnected(), d.Capabilities())
	}
	items := d.Items()
	if len(items) != 1 || items[0].ItemID() != "1234567890" || items[0].FullLibraryID() != "RU-123" {
		t.Errorf("Items() = %v", items)
	}

	results := d.WriteTags([]*rfid.Item{newItem(t, "1"), newItem(t, "2")})
	if len(results) != 2 || !results[0].Success || !results[1].Success {
		t.Errorf("WriteTags() = %+v", results)
	}
	if again := d.Items(); again[0].ItemID() != "1234567890" {
		t.Error("simulator stored a write")
	}
}
