package protocol

import (
	"encoding/json"
	"testing"

	"github.com/dotside-studios/rfid-sfl/rfid"
)

func testItem(t *testing.T) *rfid.Item {
	t.Helper()
	item := rfid.NewItem()
	item.SetCardID([]byte{0xE0, 0x04, 0x01, 0x50})
	item.SetNumberOfParts(2)
	item.SetOrdinalNumber(1)
	if err := item.SetItemID("1234567890"); err != nil {
		t.Fatal(err)
	}
	if err := item.SetCountry("RU"); err != nil {
		t.Fatal(err)
	}
	if err := item.SetLibraryID("123"); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestNewItemJSON(t *testing.T) {
	got, err := json.Marshal(NewItemJSON(testItem(t)))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"id":"1234567890","type":8,"tags":[{"tagId":"E0040150","itemId":"1234567890",` +
		`"format":61,"type":8,"itemSize":2,"indexInItemPack":1,"libraryId":"RU-123"}]}`
	if string(got) != want {
		t.Errorf("json = %s\nwant   %s", got, want)
	}
}

func TestNewItemJSON_Empty(t *testing.T) {
	empty, err := rfid.Decode(make([]byte, rfid.FrameLen))
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Empty() {
		t.Fatal("zero frame did not decode as empty")
	}
	empty.SetCardID([]byte{0xE0, 0x01})

	got, err := json.Marshal(NewItemJSON(empty))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"id":null,"type":0,"tags":[{"tagId":"{}","itemId":null,` +
		`"format":-1,"type":0,"itemSize":0,"indexInItemPack":0,"libraryId":""}]}`
	if string(got) != want {
		t.Errorf("json = %s\nwant   %s", got, want)
	}
}

func TestNewItemList_EncodesEmptyArray(t *testing.T) {
	got, err := json.Marshal(NewItemList(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[]" {
		t.Errorf("json = %s, want []", got)
	}
}

func TestDeviceJSONFieldNames(t *testing.T) {
	got, err := json.Marshal(DeviceJSON{ID: "A", Title: "A", IsOnline: true, CompoundDataIsSupported: true})
	if err != nil {
		t.Fatal(err)
	}

	want := `{"id":"A","title":"A","isOnline":true,"manualConnectIsNeeded":false,` +
		`"multiTagIsSupported":false,"isError":false,"isReadOnly":false,"compoundDataIsSupported":true}`
	if string(got) != want {
		t.Errorf("json = %s\nwant   %s", got, want)
	}
}

func TestWebSocketRequestPayload(t *testing.T) {
	raw := `{"id":"1","type":"writeTags","payload":{"deviceId":"Test Device",` +
		`"items":[{"id":"e0040150","itemId":"42","type":1,"libraryId":"RU-123","itemSize":1,"indexInItemPack":1}]}}`

	var req WebSocketRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatal(err)
	}
	if req.Type != WSTypeWriteTags {
		t.Errorf("Type = %q", req.Type)
	}

	var payload WriteTagsPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.DeviceID != "Test Device" || len(payload.Items) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Items[0].ItemID != "42" || payload.Items[0].LibraryID != "RU-123" {
		t.Errorf("item = %+v", payload.Items[0])
	}
}
