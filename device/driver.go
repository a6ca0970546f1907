package device

// Session is an open connection to a reader's vendor driver. UIDs are MSB
// first; frames are raw tag frames as handled by the rfid codec.
type Session interface {
	// Probe is a cheap status query used to detect a dead session.
	Probe() error
	Inventory() ([][]byte, error)
	Read(uid []byte) ([]byte, error)
	Write(uid, frame []byte) error
	Close() error
}

// Driver opens sessions with one reader.
type Driver interface {
	Open() (Session, error)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func() (Session, error)

func (f DriverFunc) Open() (Session, error) { return f() }
