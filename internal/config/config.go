package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultPort          = "/dev/ttyUSB0"
	DefaultBaudRate      = 9600
	DefaultTelnetPort    = 23
	DefaultReadTimeout   = 3 * time.Second
	DefaultTelnetTimeout = 4 * time.Second

	// EnvPrefix prefixes environment overrides, e.g. LUATOOL_PORT.
	EnvPrefix = "LUATOOL"
	// DirName is the per-project state directory.
	DirName = ".luatool"
)

// Duration is a time.Duration written as "3s" in JSON and the environment.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds all luatool configuration.
type Config struct {
	Port          string   `json:"port,omitempty" envconfig:"PORT"`
	BaudRate      int      `json:"baud_rate,omitempty" envconfig:"BAUD"`
	TelnetHost    string   `json:"telnet_host,omitempty" envconfig:"TELNET_HOST"`
	TelnetPort    int      `json:"telnet_port,omitempty" envconfig:"TELNET_PORT"`
	ReadTimeout   Duration `json:"read_timeout,omitempty" envconfig:"READ_TIMEOUT"`
	TelnetTimeout Duration `json:"telnet_timeout,omitempty" envconfig:"TELNET_TIMEOUT"`
	LogFile       string   `json:"log_file,omitempty" envconfig:"LOG_FILE"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Port:          DefaultPort,
		BaudRate:      DefaultBaudRate,
		TelnetPort:    DefaultTelnetPort,
		ReadTimeout:   Duration{DefaultReadTimeout},
		TelnetTimeout: Duration{DefaultTelnetTimeout},
	}
}

// Load reads and merges global and workspace configs, then applies
// environment overrides.
// Order: defaults → global (~/.config/luatool/config.json) → workspace
// (.luatool/config.json) → LUATOOL_* variables.
func Load(workspaceRoot string) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		mergeFromFile(&cfg, filepath.Join(home, ".config", "luatool", "config.json"))
	}

	if workspaceRoot != "" {
		mergeFromFile(&cfg, filepath.Join(workspaceRoot, DirName, "config.json"))
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the workspace .luatool/config.json by default,
// or to the global config if global is true.
func Save(cfg Config, workspaceRoot string, global bool) error {
	var dir string
	if global {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".config", "luatool")
	} else {
		dir = filepath.Join(workspaceRoot, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

func mergeFromFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.Port != "" {
		cfg.Port = fileCfg.Port
	}
	if fileCfg.BaudRate != 0 {
		cfg.BaudRate = fileCfg.BaudRate
	}
	if fileCfg.TelnetHost != "" {
		cfg.TelnetHost = fileCfg.TelnetHost
	}
	if fileCfg.TelnetPort != 0 {
		cfg.TelnetPort = fileCfg.TelnetPort
	}
	if fileCfg.ReadTimeout.Duration != 0 {
		cfg.ReadTimeout = fileCfg.ReadTimeout
	}
	if fileCfg.TelnetTimeout.Duration != 0 {
		cfg.TelnetTimeout = fileCfg.TelnetTimeout
	}
	if fileCfg.LogFile != "" {
		cfg.LogFile = fileCfg.LogFile
	}
}
