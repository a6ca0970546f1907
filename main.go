// Package main runs the RFID server: it registers the configured library
// RFID readers and exposes them to circulation clients over local HTTP and
// WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/systray"

	"github.com/dotside-studios/rfid-sfl/buildinfo"
	"github.com/dotside-studios/rfid-sfl/config"
	"github.com/dotside-studios/rfid-sfl/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode (default: system tray mode)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.BuildInfo())
		return 0
	}

	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	logger, closer, err := logging.Open(cfg.Logging, buildinfo.Version)
	if err != nil {
		logger = logging.New(cfg.Logging, buildinfo.Version)
		logger.Warn("log file unavailable, logging to stdout only", "file", cfg.Logging.File, "error", err)
	} else {
		defer closer.Close()
	}

	if cfgErr != nil {
		logger.Error("failed to load configuration, using defaults", "path", *configPath, "error", cfgErr)
	}
	for _, w := range cfg.Warnings {
		logger.Warn("configuration corrected", "path", *configPath, "warning", w)
	}

	if *cliMode || !cfg.Tray.Enabled {
		return runCLI(cfg, logger)
	}
	return runTray(cfg, logger)
}

// runCLI serves until SIGINT or SIGTERM.
func runCLI(cfg *config.Config, logger *logging.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Writing.AskConfirmation {
		logger.Warn("write confirmation needs the system tray, writes are approved without asking")
	}

	agent := NewAgent(cfg, logger, nil)
	if err := agent.Start(ctx); err != nil {
		logger.Error("failed to start agent", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping server")
	agent.Stop()
	return 0
}

func runTray(cfg *config.Config, logger *logging.Logger) int {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		logger.Info("shutdown signal received, quitting")
		systray.Quit()
	}()

	NewSystrayApp(cfg, logger).Run()
	return 0
}
