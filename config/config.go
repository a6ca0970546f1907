// Package config loads the server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = "config.yaml"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Writing WritingConfig `yaml:"writing"`
	Tray    TrayConfig    `yaml:"tray"`
	Devices DevicesConfig `yaml:"devices"`

	// Warnings collects problems that were corrected while loading.
	Warnings []string `yaml:"-"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// MDNS advertises the server on the local network.
	MDNS bool `yaml:"mdns"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // off, error, warn, info, debug, trace
	Format    string `yaml:"format"` // text, json
	ToFile    bool   `yaml:"to_file"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// WritingConfig controls tag writes.
type WritingConfig struct {
	// AskConfirmation asks the desktop user before every write.
	AskConfirmation bool          `yaml:"ask_confirmation"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
}

// TrayConfig controls the system tray icon.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DevicesConfig lists the reader drivers to register.
type DevicesConfig struct {
	Chafon      ChafonConfig      `yaml:"chafon"`
	Bibliotheca BibliothecaConfig `yaml:"bibliotheca"`
	PCSC        PCSCConfig        `yaml:"pcsc"`
	LibNFC      LibNFCConfig      `yaml:"libnfc"`
	Simulator   SimulatorConfig   `yaml:"simulator"`
}

// ChafonConfig locates the Chafon HID reader. An empty HIDRaw path means
// search by vendor/product id and name.
type ChafonConfig struct {
	Enabled   bool   `yaml:"enabled"`
	HIDRaw    string `yaml:"hidraw"`
	NameMatch string `yaml:"name_match"`
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
}

// BibliothecaConfig locates the Bibliotheca serial reader. An empty port
// means search by vendor/product id.
type BibliothecaConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
}

// PCSCConfig selects a PC/SC reader by name; empty picks the first one.
type PCSCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Reader  string `yaml:"reader"`
}

// LibNFCConfig selects a libnfc device; empty picks the first one.
type LibNFCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Connstring string `yaml:"connstring"`
}

// SimulatorConfig enables the hardware-free test device.
type SimulatorConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "127.0.0.1",
			Port:    21646,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			ToFile:    true,
			File:      "rfid_sfl.log",
			MaxSizeMB: 5,
		},
		Writing: WritingConfig{
			ConfirmTimeout: 30 * time.Second,
		},
		Tray: TrayConfig{Enabled: true},
		Devices: DevicesConfig{
			Chafon: ChafonConfig{
				Enabled:   true,
				NameMatch: "RH320",
			},
			Bibliotheca: BibliothecaConfig{
				Enabled:   true,
				Port:      "/dev/ttyUSB0",
				BaudRate:  115200,
				VendorID:  0x0d2c,
				ProductID: 0x032a,
			},
		},
	}
}

// Load reads the configuration at path. A missing file is created with the
// defaults. Environment overrides are applied before validation.
//
// Environment variables: RFID_SFL_ADDRESS, RFID_SFL_PORT, RFID_SFL_LOG_LEVEL.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		cfg.warn("config file %s did not exist, created it with defaults", path)
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern RFID_SFL_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RFID_SFL_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RFID_SFL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			cfg.warn("RFID_SFL_PORT=%q is not a number, ignored", v)
		} else {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RFID_SFL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

var logLevels = []string{"off", "error", "warn", "info", "debug", "trace"}

// Validate checks the configuration. Recoverable problems are corrected
// and recorded in Warnings.
func (c *Config) Validate() error {
	var errs []string

	if net.ParseIP(c.Server.Address) == nil {
		errs = append(errs, fmt.Sprintf("server.address %q is not an IP address", c.Server.Address))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	level := strings.ToLower(c.Logging.Level)
	if !contains(logLevels, level) {
		c.warn("logging.level %q is incorrect, options are %s; using info", c.Logging.Level, strings.Join(logLevels, ", "))
		level = "info"
	}
	c.Logging.Level = level

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
		c.Logging.Format = strings.ToLower(c.Logging.Format)
	default:
		c.warn("logging.format %q is incorrect, using text", c.Logging.Format)
		c.Logging.Format = "text"
	}
	if c.Logging.ToFile && c.Logging.File == "" {
		errs = append(errs, "logging.file is required when logging.to_file is set")
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, "logging.max_size_mb must not be negative")
	}

	if c.Writing.AskConfirmation && c.Writing.ConfirmTimeout <= 0 {
		c.warn("writing.confirm_timeout must be positive, using 30s")
		c.Writing.ConfirmTimeout = 30 * time.Second
	}

	if c.Devices.Bibliotheca.Enabled && c.Devices.Bibliotheca.BaudRate <= 0 {
		errs = append(errs, "devices.bibliotheca.baud_rate must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
