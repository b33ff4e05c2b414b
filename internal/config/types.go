package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ForwardRule maps a local TCP port to a TCP port on the device.
type ForwardRule struct {
	Local  uint16 `yaml:"local"`
	Remote uint16 `yaml:"remote"`
}

func (r ForwardRule) String() string {
	return fmt.Sprintf("tcp:%d->tcp:%d", r.Local, r.Remote)
}

// ADBSettings locates the adb server and the platform-tools it runs from.
type ADBSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ToolsDir is where platform-tools are unpacked. Relative paths are
	// resolved against the directory of the running executable.
	ToolsDir string `yaml:"toolsDir"`
	// DownloadURL may contain {platform}, replaced with linux, windows or darwin.
	DownloadURL        string `yaml:"downloadURL"`
	SkipDownload       bool   `yaml:"skipDownload"`
	ReconnectBackoffMs int    `yaml:"reconnectBackoffMs"`
}

// AdbforwardConfig is the top-level configuration.
type AdbforwardConfig struct {
	// AllowList holds the product identities that qualify for forwarding.
	AllowList    []string      `yaml:"allowList"`
	ForwardPorts []ForwardRule `yaml:"forwardPorts"`
	// LaunchCommand runs in a device shell once the forwards are installed.
	LaunchCommand string `yaml:"launchCommand"`

	SettleDelayMs    int `yaml:"settleDelayMs"`
	SettleRetries    int `yaml:"settleRetries"`
	ForwardAttempts  int `yaml:"forwardAttempts"`
	RetryBackoffMs   int `yaml:"retryBackoffMs"`
	CommandTimeoutMs int `yaml:"commandTimeoutMs"`
	FlushIntervalMs  int `yaml:"flushIntervalMs"`

	ADB ADBSettings `yaml:"adb"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c AdbforwardConfig) SettleDelay() time.Duration      { return ms(c.SettleDelayMs) }
func (c AdbforwardConfig) RetryBackoff() time.Duration     { return ms(c.RetryBackoffMs) }
func (c AdbforwardConfig) CommandTimeout() time.Duration   { return ms(c.CommandTimeoutMs) }
func (c AdbforwardConfig) FlushInterval() time.Duration    { return ms(c.FlushIntervalMs) }
func (c AdbforwardConfig) ReconnectBackoff() time.Duration { return ms(c.ADB.ReconnectBackoffMs) }

// Validate reports every problem found, joined, each wrapping ErrInvalidConfig.
func (c AdbforwardConfig) Validate() error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	nonEmpty := 0
	for _, p := range c.AllowList {
		if p != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		invalid("allowList must contain at least one product")
	}

	if len(c.ForwardPorts) == 0 {
		invalid("forwardPorts must contain at least one rule")
	}
	locals := make(map[uint16]bool, len(c.ForwardPorts))
	for i, r := range c.ForwardPorts {
		if r.Local == 0 || r.Remote == 0 {
			invalid("forwardPorts[%d]: ports must be non-zero", i)
		}
		if locals[r.Local] {
			invalid("forwardPorts[%d]: local port %d listed twice", i, r.Local)
		}
		locals[r.Local] = true
	}

	if c.LaunchCommand == "" {
		invalid("launchCommand must not be empty")
	}

	for name, v := range map[string]int{
		"settleDelayMs":          c.SettleDelayMs,
		"settleRetries":          c.SettleRetries,
		"retryBackoffMs":         c.RetryBackoffMs,
		"adb.reconnectBackoffMs": c.ADB.ReconnectBackoffMs,
	} {
		if v < 0 {
			invalid("%s must not be negative", name)
		}
	}
	if c.ForwardAttempts < 1 {
		invalid("forwardAttempts must be at least 1")
	}
	if c.CommandTimeoutMs <= 0 {
		invalid("commandTimeoutMs must be positive")
	}
	if c.FlushIntervalMs <= 0 {
		invalid("flushIntervalMs must be positive")
	}
	if c.ADB.Port <= 0 || c.ADB.Port > 65535 {
		invalid("adb.port %d out of range", c.ADB.Port)
	}

	return errors.Join(errs...)
}
