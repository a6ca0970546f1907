package device

import "github.com/dotside-studios/rfid-sfl/rfid"

// Simulator is a reader without hardware for client integration testing.
// It always reports one fixed item and accepts every write without storing
// it.
type Simulator struct{}

// SimulatorModel describes the simulator.
var SimulatorModel = Model{
	Name:         NameSimulator,
	Capabilities: Capabilities{MultiTag: true, CompoundData: true},
}

func (Simulator) Connect() {}

func (Simulator) IsConnected() bool { return true }

func (Simulator) Capabilities() Capabilities { return SimulatorModel.Capabilities }

func (Simulator) Items() []*rfid.Item {
	item := rfid.NewItem()
	if err := item.SetItemID("1234567890"); err != nil {
		return []*rfid.Item{}
	}
	if err := item.SetLibraryID("123"); err != nil {
		return []*rfid.Item{}
	}
	if err := item.SetCountry("RU"); err != nil {
		return []*rfid.Item{}
	}
	return []*rfid.Item{item}
}

func (Simulator) WriteTags(items []*rfid.Item) []WriteResult {
	results := make([]WriteResult, len(items))
	for i, item := range items {
		results[i] = succeeded(item)
	}
	return results
}
