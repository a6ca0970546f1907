package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dotside-studios/rfid-sfl/config"
	"github.com/dotside-studios/rfid-sfl/device"
	"github.com/dotside-studios/rfid-sfl/server"
)

// simulatorConfig enables only the simulator on an ephemeral port.
func simulatorConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Logging.ToFile = false
	cfg.Devices.Chafon.Enabled = false
	cfg.Devices.Bibliotheca.Enabled = false
	cfg.Devices.Simulator.Enabled = true
	return cfg
}

func TestAgentStartStop(t *testing.T) {
	agent := NewAgent(simulatorConfig(), discardLogger(), nil)
	if agent.Running() {
		t.Fatal("new agent is running")
	}

	if err := agent.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer agent.Stop()

	if !agent.Running() {
		t.Error("Running() = false after Start")
	}
	if err := agent.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded, want error")
	}

	url := agent.URL()
	if strings.HasSuffix(url, ":0/rfid/") {
		t.Errorf("URL() = %q, want the bound port", url)
	}

	resp, err := http.Get(url + "?action=getDevicesList")
	if err != nil {
		t.Fatalf("GET devices: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var devices []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &devices); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	if len(devices) != 1 || devices[0].ID != device.NameSimulator {
		t.Errorf("devices = %s, want only %q", body, device.NameSimulator)
	}

	statuses := agent.Devices()
	if len(statuses) != 1 || !statuses[0].Connected {
		t.Errorf("Devices() = %+v, want one connected simulator", statuses)
	}

	agent.Stop()
	if agent.Running() {
		t.Error("Running() = true after Stop")
	}
	if agent.Devices() != nil {
		t.Error("Devices() not nil after Stop")
	}
	if _, err := http.Get(url); err == nil {
		t.Error("server still answering after Stop")
	}

	// Stopping twice is harmless.
	agent.Stop()
}

func TestAgentRestart(t *testing.T) {
	agent := NewAgent(simulatorConfig(), discardLogger(), nil)
	for i := 0; i < 2; i++ {
		if err := agent.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		agent.Stop()
	}
}

func TestAgentStartListenError(t *testing.T) {
	cfg := simulatorConfig()
	cfg.Server.Address = "203.0.113.1"

	agent := NewAgent(cfg, discardLogger(), nil)
	if err := agent.Start(context.Background()); err == nil {
		agent.Stop()
		t.Fatal("Start() on a foreign address succeeded, want error")
	}
	if agent.Running() {
		t.Error("Running() = true after failed Start")
	}
}

func TestNewAgentConfirmer(t *testing.T) {
	rejectAll := server.ConfirmFunc(func(context.Context, string, int) bool { return false })

	tests := []struct {
		name     string
		ask      bool
		given    server.Confirmer
		approved bool
	}{
		{"confirmation disabled", false, rejectAll, true},
		{"confirmation enabled", true, rejectAll, false},
		{"enabled without confirmer", true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := simulatorConfig()
			cfg.Writing.AskConfirmation = tt.ask

			agent := NewAgent(cfg, discardLogger(), tt.given)
			if got := agent.confirmer.Confirm(context.Background(), "Test Device", 1); got != tt.approved {
				t.Errorf("Confirm() = %v, want %v", got, tt.approved)
			}
		})
	}
}

func TestDeviceEntries(t *testing.T) {
	cfg := config.DevicesConfig{
		Chafon:      config.ChafonConfig{Enabled: true, NameMatch: "RH320"},
		Bibliotheca: config.BibliothecaConfig{Enabled: true, Port: "/dev/null", BaudRate: 115200},
		PCSC:        config.PCSCConfig{Enabled: true},
		LibNFC:      config.LibNFCConfig{Enabled: true},
		Simulator:   config.SimulatorConfig{Enabled: true},
	}

	entries := deviceEntries(cfg, nil)

	want := []string{
		device.NameChafon,
		device.NameBibliotheca,
		device.NamePCSC,
		device.NameLibNFC,
		device.NameSimulator,
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, e.Name(), want[i])
		}
	}

	if got := deviceEntries(config.DevicesConfig{}, nil); len(got) != 0 {
		t.Errorf("all disabled: got %d entries, want 0", len(got))
	}
}
