package device

import (
	"fmt"

	"github.com/dotside-studios/rfid-sfl/rfid"
)

// Model names a reader model and its fixed capabilities.
type Model struct {
	Name         string
	Capabilities Capabilities
}

// Reader implements Device for any reader reachable through a Driver.
type Reader struct {
	model   Model
	driver  Driver
	session Session
	log     Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the reader's logger.
func WithLogger(l Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// NewReader returns a disconnected reader. Call Connect, normally through
// the Registry, to open it.
func NewReader(model Model, drv Driver, opts ...Option) *Reader {
	r := &Reader{model: model, driver: drv, log: noopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the reader's model descriptor.
func (r *Reader) Model() Model { return r.model }

func (r *Reader) Connect() {
	if r.session != nil {
		err := r.session.Probe()
		if err == nil {
			return
		}
		r.log.Warn("reader probe failed, reopening", "device", r.model.Name, "error", err)
		r.closeSession()
	}

	session, err := r.driver.Open()
	if err != nil {
		r.log.Debug("reader not available", "device", r.model.Name, "error", err)
		return
	}
	r.session = session
	r.log.Info("reader connected", "device", r.model.Name)
}

func (r *Reader) IsConnected() bool { return r.session != nil }

func (r *Reader) Capabilities() Capabilities { return r.model.Capabilities }

func (r *Reader) Items() []*rfid.Item {
	items := []*rfid.Item{}
	if r.session == nil {
		return items
	}

	uids, err := r.session.Inventory()
	if err != nil {
		r.log.Warn("inventory failed", "device", r.model.Name, "error", err)
		return items
	}
	// Single tag readers cannot tell two tags apart; read nothing.
	if !r.model.Capabilities.MultiTag && len(uids) != 1 {
		if len(uids) > 1 {
			r.log.Debug("more than one tag in range", "device", r.model.Name, "count", len(uids))
		}
		return items
	}

	for _, uid := range uids {
		frame, err := r.session.Read(uid)
		if err != nil {
			r.log.Debug("tag read failed", "device", r.model.Name, "uid", fmt.Sprintf("%X", uid), "error", err)
			continue
		}
		item, err := decodeTag(frame)
		if err != nil {
			r.log.Debug("tag dropped", "device", r.model.Name, "uid", fmt.Sprintf("%X", uid), "error", err)
			continue
		}
		item.SetCardID(uid)
		items = append(items, item)
	}
	return items
}

func (r *Reader) WriteTags(items []*rfid.Item) []WriteResult {
	caps := r.model.Capabilities
	switch {
	case !caps.MultiTag && len(items) > 1:
		return failAll(items, MsgSingleTagOnly)
	case caps.ReadOnly:
		return failAll(items, MsgReadOnly)
	case r.session == nil:
		return failAll(items, MsgNotConnected)
	}

	var inRange [][]byte
	scanned := false

	results := make([]WriteResult, 0, len(items))
	for _, item := range items {
		uid := item.CardID()
		if len(uid) == 0 {
			if !scanned {
				var err error
				if inRange, err = r.session.Inventory(); err != nil {
					r.log.Warn("inventory failed", "device", r.model.Name, "error", err)
				}
				scanned = true
			}
			if len(inRange) != 1 {
				results = append(results, failed(item, MsgWriteFailed))
				continue
			}
			uid = inRange[0]
		}

		if err := r.session.Write(uid, rfid.Encode(item)); err != nil {
			r.log.Warn("tag write failed", "device", r.model.Name, "uid", fmt.Sprintf("%X", uid), "error", err)
			results = append(results, failed(item, MsgWriteFailed))
			continue
		}
		r.log.Info("tag written", "device", r.model.Name, "uid", fmt.Sprintf("%X", uid), "item", item.ItemID())
		results = append(results, succeeded(item))
	}
	return results
}

// Close closes the open session, if any.
func (r *Reader) Close() error {
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

func (r *Reader) closeSession() {
	if err := r.session.Close(); err != nil {
		r.log.Debug("closing dead session", "device", r.model.Name, "error", err)
	}
	r.session = nil
}

// decodeTag decodes a tag read. Tags written by other systems keep the
// data area to the first 32 bytes and may hold unrelated data after it,
// so a frame failing the checksum is retried on that prefix.
func decodeTag(frame []byte) (*rfid.Item, error) {
	item, err := rfid.Decode(frame)
	if err != nil || !item.Empty() || len(frame) <= rfid.DataLen {
		return item, err
	}
	if short, err := rfid.Decode(frame[:rfid.DataLen]); err == nil && !short.Empty() {
		return short, nil
	}
	return item, nil
}
