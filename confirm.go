package main

import (
	"context"
	"time"

	"github.com/dotside-studios/rfid-sfl/logging"
)

const defaultConfirmTimeout = 30 * time.Second

// promptConfirmer asks the desktop user to approve each batch of writes.
// One question is open at a time; later requests wait for their turn.
// A question that is not answered before the timeout counts as rejected.
type promptConfirmer struct {
	timeout time.Duration
	show    func(deviceName string, count int)
	hide    func()
	logger  *logging.Logger

	turn    chan struct{}
	answers chan bool
}

func newPromptConfirmer(timeout time.Duration, logger *logging.Logger, show func(string, int), hide func()) *promptConfirmer {
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &promptConfirmer{
		timeout: timeout,
		show:    show,
		hide:    hide,
		logger:  logger,
		turn:    make(chan struct{}, 1),
		answers: make(chan bool, 1),
	}
}

// Confirm implements server.Confirmer.
func (c *promptConfirmer) Confirm(ctx context.Context, deviceName string, count int) bool {
	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	defer func() { <-c.turn }()

	// Drop a click that arrived while nothing was asked.
	select {
	case <-c.answers:
	default:
	}

	c.show(deviceName, count)
	defer c.hide()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case ok := <-c.answers:
		c.logger.Info("write confirmation answered", "device", deviceName, "count", count, "approved", ok)
		return ok
	case <-timer.C:
		c.logger.Warn("write confirmation timed out", "device", deviceName, "count", count, "timeout", c.timeout)
		return false
	case <-ctx.Done():
		return false
	}
}

// Answer resolves the open question. Repeated clicks are ignored.
func (c *promptConfirmer) Answer(approved bool) {
	select {
	case c.answers <- approved:
	default:
	}
}
