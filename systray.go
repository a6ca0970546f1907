package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"fyne.io/systray"

	"github.com/dotside-studios/rfid-sfl/buildinfo"
	"github.com/dotside-studios/rfid-sfl/config"
	"github.com/dotside-studios/rfid-sfl/logging"
	"github.com/dotside-studios/rfid-sfl/server"
)

const deviceRefreshInterval = 5 * time.Second

// SystrayApp manages the system tray interface for the agent.
type SystrayApp struct {
	agent     *Agent
	confirmer *promptConfirmer
	logger    *logging.Logger
	done      chan struct{}

	mu        sync.Mutex
	pending   bool
	connected int

	// Menu items
	mStatus  *systray.MenuItem
	mURL     *systray.MenuItem
	mCopyURL *systray.MenuItem
	mDevices *systray.MenuItem
	mConfirm *systray.MenuItem
	mApprove *systray.MenuItem
	mReject  *systray.MenuItem
	mStart   *systray.MenuItem
	mStop    *systray.MenuItem
	mQuit    *systray.MenuItem

	deviceItems map[string]*systray.MenuItem
}

// NewSystrayApp creates the tray application and its agent. When write
// confirmation is enabled, writes wait for an answer from the tray menu.
func NewSystrayApp(cfg *config.Config, logger *logging.Logger) *SystrayApp {
	s := &SystrayApp{
		logger:      logger.With("component", "systray"),
		done:        make(chan struct{}),
		deviceItems: make(map[string]*systray.MenuItem),
	}

	var confirmer server.Confirmer
	if cfg.Writing.AskConfirmation {
		s.confirmer = newPromptConfirmer(cfg.Writing.ConfirmTimeout, s.logger, s.showConfirmation, s.hideConfirmation)
		confirmer = s.confirmer
	}
	s.agent = NewAgent(cfg, logger, confirmer)
	return s
}

// Run starts the systray application and blocks until Quit.
func (s *SystrayApp) Run() {
	systray.Run(s.onReady, s.onExit)
}

func (s *SystrayApp) onReady() {
	s.setupUI()
	s.handleStartAgent()
	go s.refreshLoop()
	go s.handleMenuEvents()
}

func (s *SystrayApp) onExit() {
	close(s.done)
	s.agent.Stop()
}

// setupUI initializes all menu items
func (s *SystrayApp) setupUI() {
	systray.SetIcon(iconData)
	systray.SetTooltip(buildinfo.DisplayName)

	s.mStatus = systray.AddMenuItem("Starting...", "Agent status")
	s.mStatus.Disable()

	s.mURL = systray.AddMenuItem("Server: Not running", "Server address")
	s.mURL.Disable()
	s.mCopyURL = systray.AddMenuItem("Copy Server URL", "Copy the server URL to the clipboard")

	systray.AddSeparator()

	s.mDevices = systray.AddMenuItem("Devices", "Registered readers")

	systray.AddSeparator()

	s.mConfirm = systray.AddMenuItem("No pending writes", "Write confirmation")
	s.mConfirm.Disable()
	s.mApprove = systray.AddMenuItem("Approve Write", "Allow the pending write")
	s.mApprove.Disable()
	s.mReject = systray.AddMenuItem("Reject Write", "Refuse the pending write")
	s.mReject.Disable()
	if s.confirmer == nil {
		s.mConfirm.Hide()
		s.mApprove.Hide()
		s.mReject.Hide()
	}

	systray.AddSeparator()

	s.mStart = systray.AddMenuItem("Start Server", "Start the server")
	s.mStop = systray.AddMenuItem("Stop Server", "Stop the server")
	s.mQuit = systray.AddMenuItem("Quit", "Quit the application")
}

// handleMenuEvents processes all menu click events
func (s *SystrayApp) handleMenuEvents() {
	for {
		select {
		case <-s.mStart.ClickedCh:
			s.handleStartAgent()
		case <-s.mStop.ClickedCh:
			s.handleStopAgent()
		case <-s.mCopyURL.ClickedCh:
			if err := copyToClipboard(s.agent.URL()); err != nil {
				s.logger.Warn("failed to copy to clipboard", "error", err)
			}
		case <-s.mApprove.ClickedCh:
			if s.confirmer != nil {
				s.confirmer.Answer(true)
			}
		case <-s.mReject.ClickedCh:
			if s.confirmer != nil {
				s.confirmer.Answer(false)
			}
		case <-s.mQuit.ClickedCh:
			systray.Quit()
			return
		case <-s.done:
			return
		}
	}
}

func (s *SystrayApp) handleStartAgent() {
	if err := s.agent.Start(context.Background()); err != nil {
		s.logger.Error("failed to start agent", "error", err)
		s.mStatus.SetTitle("Failed to Start")
		systray.SetIcon(iconDataError)
		return
	}
	s.mURL.SetTitle("Server: " + s.agent.URL())
	s.mStart.Disable()
	s.mStop.Enable()
	s.refreshDevices()
}

func (s *SystrayApp) handleStopAgent() {
	s.agent.Stop()
	s.mStatus.SetTitle("Stopped")
	s.mURL.SetTitle("Server: Not running")
	s.mStop.Disable()
	s.mStart.Enable()
	s.refreshDevices()
}

// refreshLoop polls device connectivity until the tray exits.
func (s *SystrayApp) refreshLoop() {
	ticker := time.NewTicker(deviceRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.refreshDevices()
		}
	}
}

// refreshDevices updates the per-device entries, the status line and the
// icon. Device entries are created on first sight and never removed.
func (s *SystrayApp) refreshDevices() {
	statuses := s.agent.Devices()

	s.mu.Lock()
	defer s.mu.Unlock()

	connected := 0
	for _, st := range statuses {
		item, ok := s.deviceItems[st.Name]
		if !ok {
			item = s.mDevices.AddSubMenuItemCheckbox(st.Name, "Checked while the reader is connected", false)
			s.deviceItems[st.Name] = item
		}
		if st.Connected {
			connected++
			item.Check()
			item.SetTitle(st.Name + ": connected")
		} else {
			item.Uncheck()
			item.SetTitle(st.Name + ": not connected")
		}
	}

	s.connected = connected
	if s.agent.Running() {
		s.mStatus.SetTitle(fmt.Sprintf("Running: %d of %d devices connected", connected, len(statuses)))
	}
	s.updateIcon()
}

// updateIcon must be called with s.mu held.
func (s *SystrayApp) updateIcon() {
	switch {
	case s.pending:
		systray.SetIcon(iconDataPending)
	case !s.agent.Running():
		systray.SetIcon(iconData)
	case s.connected == 0:
		systray.SetIcon(iconDataError)
	default:
		systray.SetIcon(iconDataConnected)
	}
}

func (s *SystrayApp) showConfirmation(deviceName string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = true
	s.mConfirm.SetTitle(fmt.Sprintf("Write %d tag(s) on %s?", count, deviceName))
	s.mApprove.Enable()
	s.mReject.Enable()
	systray.SetTooltip(fmt.Sprintf("%s: write pending on %s", buildinfo.DisplayName, deviceName))
	s.updateIcon()
}

func (s *SystrayApp) hideConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = false
	s.mConfirm.SetTitle("No pending writes")
	s.mApprove.Disable()
	s.mReject.Disable()
	systray.SetTooltip(buildinfo.DisplayName)
	s.updateIcon()
}

// copyToClipboard copies text to the system clipboard
func copyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
