package device

import (
	"github.com/dotside-studios/rfid-sfl/driver/bibliotheca"
	"github.com/dotside-studios/rfid-sfl/driver/chafon"
	"github.com/dotside-studios/rfid-sfl/driver/libnfc"
	"github.com/dotside-studios/rfid-sfl/driver/pcsc"
)

// Display names. These are the device ids circulation clients use.
const (
	NameChafon      = "Chafon CF-RH320U-93"
	NameBibliotheca = "Bibliotheca 210 Reader"
	NamePCSC        = "PC/SC Reader"
	NameLibNFC      = "libnfc Reader"
	NameSimulator   = "Test Device"
)

// Known reader models.
var (
	ChafonModel = Model{
		Name:         NameChafon,
		Capabilities: Capabilities{CompoundData: true},
	}
	BibliothecaModel = Model{
		Name:         NameBibliotheca,
		Capabilities: Capabilities{MultiTag: true, CompoundData: true},
	}
	PCSCModel = Model{
		Name:         NamePCSC,
		Capabilities: Capabilities{CompoundData: true},
	}
	LibNFCModel = Model{
		Name:         NameLibNFC,
		Capabilities: Capabilities{MultiTag: true, CompoundData: true},
	}
)

// NewChafon returns the Chafon CF-RH320U-93 HID reader. The reader LED is
// switched to green on every successful open.
func NewChafon(cfg chafon.Config, opts ...Option) *Reader {
	var reader *Reader
	reader = NewReader(ChafonModel, DriverFunc(func() (Session, error) {
		r, err := chafon.Open(cfg)
		if err != nil {
			return nil, err
		}
		if err := r.LED(chafon.LEDGreen); err != nil {
			reader.log.Debug("setting reader LED", "device", NameChafon, "error", err)
		}
		return r, nil
	}), opts...)
	return reader
}

// NewBibliotheca returns the Bibliotheca 210 serial reader.
func NewBibliotheca(cfg bibliotheca.Config, opts ...Option) *Reader {
	return NewReader(BibliothecaModel, DriverFunc(func() (Session, error) {
		r, err := bibliotheca.Open(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	}), opts...)
}

// NewPCSC returns a PC/SC contactless reader.
func NewPCSC(cfg pcsc.Config, opts ...Option) *Reader {
	return NewReader(PCSCModel, DriverFunc(func() (Session, error) {
		r, err := pcsc.Open(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	}), opts...)
}

// NewLibNFC returns a libnfc reader carrying frames on Ultralight tags.
func NewLibNFC(cfg libnfc.Config, opts ...Option) *Reader {
	return NewReader(LibNFCModel, DriverFunc(func() (Session, error) {
		r, err := libnfc.Open(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	}), opts...)
}
