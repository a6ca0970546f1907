package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotside-studios/rfid-sfl/buildinfo"
	"github.com/dotside-studios/rfid-sfl/config"
	"github.com/dotside-studios/rfid-sfl/device"
	"github.com/dotside-studios/rfid-sfl/driver/bibliotheca"
	"github.com/dotside-studios/rfid-sfl/driver/chafon"
	"github.com/dotside-studios/rfid-sfl/driver/hidraw"
	"github.com/dotside-studios/rfid-sfl/driver/libnfc"
	"github.com/dotside-studios/rfid-sfl/driver/pcsc"
	"github.com/dotside-studios/rfid-sfl/logging"
	"github.com/dotside-studios/rfid-sfl/server"
)

// readerTimeout bounds a single exchange with a USB reader.
const readerTimeout = 2 * time.Second

// Agent owns the device registry and the HTTP server of one process.
type Agent struct {
	Config   *config.Config
	Logger   *logging.Logger
	Registry *device.Registry
	Server   *server.Server

	log       *logging.Logger
	confirmer server.Confirmer
	mu        sync.Mutex
}

// NewAgent returns a stopped agent. A nil confirmer approves every write.
func NewAgent(cfg *config.Config, logger *logging.Logger, confirmer server.Confirmer) *Agent {
	if logger == nil {
		logger = logging.Default()
	}
	if confirmer == nil || !cfg.Writing.AskConfirmation {
		confirmer = server.AlwaysConfirm{}
	}
	return &Agent{
		Config:    cfg,
		Logger:    logger,
		log:       logger.With("component", "agent"),
		confirmer: confirmer,
	}
}

// Start registers the configured devices and starts serving.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Server != nil {
		return errors.New("agent is already running")
	}

	devLogger := a.Logger.With("component", "device")
	registry := device.NewRegistry(devLogger, deviceEntries(a.Config.Devices, devLogger)...)

	srv, err := server.New(server.Config{
		Addr:      a.Config.ListenAddr(),
		Registry:  registry,
		Confirmer: a.confirmer,
		Logger:    a.Logger,
		MDNS:      a.Config.Server.MDNS,
	})
	if err != nil {
		a.closeRegistry(registry)
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		a.closeRegistry(registry)
		return err
	}

	a.Registry = registry
	a.Server = srv
	a.log.Info("agent started", "version", buildinfo.FullVersion(), "url", a.url(), "devices", registry.Names())
	return nil
}

// Stop closes the server and every device. Stopping a stopped agent is a
// no-op.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Server == nil {
		a.log.Debug("agent is not running")
		return
	}

	a.log.Info("stopping agent")
	if err := a.Server.Close(); err != nil {
		a.log.Warn("server shutdown", "error", err)
	}
	a.closeRegistry(a.Registry)
	a.Server = nil
	a.Registry = nil
	a.log.Info("agent stopped")
}

func (a *Agent) closeRegistry(registry *device.Registry) {
	if err := registry.Close(); err != nil {
		a.log.Warn("closing devices", "error", err)
	}
}

// Running reports whether the server is up.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Server != nil
}

// Devices returns the last known status of every registered device, or nil
// when the agent is stopped. It does not reconnect readers.
func (a *Agent) Devices() []device.Status {
	a.mu.Lock()
	registry := a.Registry
	a.mu.Unlock()

	if registry == nil {
		return nil
	}
	return registry.Snapshot()
}

// URL returns the base URL clients should use.
func (a *Agent) URL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url()
}

func (a *Agent) url() string {
	if a.Server != nil {
		if addr := a.Server.Addr(); addr != nil {
			return "http://" + addr.String() + "/rfid/"
		}
	}
	return "http://" + a.Config.ListenAddr() + "/rfid/"
}

// deviceEntries builds a registry entry for every enabled driver, in a fixed
// order so device lists are stable.
func deviceEntries(cfg config.DevicesConfig, logger device.Logger) []*device.Entry {
	opt := device.WithLogger(logger)
	var entries []*device.Entry

	if cfg.Chafon.Enabled {
		dev := device.NewChafon(chafon.Config{
			Path: cfg.Chafon.HIDRaw,
			Match: hidraw.Match{
				Vendor:  cfg.Chafon.VendorID,
				Product: cfg.Chafon.ProductID,
				Name:    cfg.Chafon.NameMatch,
			},
			Timeout: readerTimeout,
		}, opt)
		entries = append(entries, device.NewEntry(device.NameChafon, dev))
	}
	if cfg.Bibliotheca.Enabled {
		dev := device.NewBibliotheca(bibliotheca.Config{
			Port:     cfg.Bibliotheca.Port,
			BaudRate: cfg.Bibliotheca.BaudRate,
			Vendor:   cfg.Bibliotheca.VendorID,
			Product:  cfg.Bibliotheca.ProductID,
			Timeout:  readerTimeout,
		}, opt)
		entries = append(entries, device.NewEntry(device.NameBibliotheca, dev))
	}
	if cfg.PCSC.Enabled {
		dev := device.NewPCSC(pcsc.Config{Reader: cfg.PCSC.Reader}, opt)
		entries = append(entries, device.NewEntry(device.NamePCSC, dev))
	}
	if cfg.LibNFC.Enabled {
		dev := device.NewLibNFC(libnfc.Config{Connstring: cfg.LibNFC.Connstring}, opt)
		entries = append(entries, device.NewEntry(device.NameLibNFC, dev))
	}
	if cfg.Simulator.Enabled {
		entries = append(entries, device.NewEntry(device.NameSimulator, device.Simulator{}))
	}
	return entries
}
