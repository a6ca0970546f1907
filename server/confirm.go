package server

import "context"

// Confirmer asks whether a batch of writes may proceed. It is consulted
// before the device is locked, so a slow answer never blocks other
// requests to the same reader.
type Confirmer interface {
	Confirm(ctx context.Context, deviceName string, count int) bool
}

// AlwaysConfirm approves every write.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(context.Context, string, int) bool { return true }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, deviceName string, count int) bool

func (f ConfirmFunc) Confirm(ctx context.Context, deviceName string, count int) bool {
	return f(ctx, deviceName, count)
}
