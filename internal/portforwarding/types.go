package portforwarding

import (
	"context"
	"time"

	"adbforward/internal/adb"
	"adbforward/internal/config"
)

// Transport is the part of the adb client the controller needs.
type Transport interface {
	ListDevices(ctx context.Context) ([]adb.DeviceInfo, error)
	CreateForward(ctx context.Context, serial string, local, remote uint16) error
	ExecuteRemoteCommand(ctx context.Context, serial, command string, sink adb.LineSink) error
}

// Outcome is the terminal state of one OnDeviceConnected call.
type Outcome string

const (
	// OutcomeGone means the device disappeared before it could be inspected.
	OutcomeGone Outcome = "Gone"
	// OutcomeRejected means the device's product is not on the allow-list.
	OutcomeRejected Outcome = "Rejected"
	// OutcomeForwardFailed means a forward rule could not be installed.
	OutcomeForwardFailed Outcome = "ForwardFailed"
	// OutcomeLaunchFailed means the forwards are in place but the launch command failed.
	OutcomeLaunchFailed Outcome = "LaunchFailed"
	// OutcomeLaunched means forwards are installed and the launch command ran.
	OutcomeLaunched Outcome = "Launched"
	// OutcomeCancelled means the context ended before the sequence finished.
	OutcomeCancelled Outcome = "Cancelled"
	// OutcomeFailed covers device listing errors and recovered panics.
	OutcomeFailed Outcome = "Failed"
)

// Result describes how one connect notification was handled.
type Result struct {
	Serial    string
	Device    adb.DeviceInfo
	Outcome   Outcome
	Forwarded []config.ForwardRule
	Err       error
}

// UpdateFunc receives progress for a device: once with StatusForwarded when
// all rules are installed, and once with the final Result.
type UpdateFunc func(status Status, result Result)

// Status distinguishes intermediate progress from the final report.
type Status string

const (
	StatusForwarded Status = "Forwarded"
	StatusDone      Status = "Done"
)

// Settings are the fixed behavioural constants of the controller.
type Settings struct {
	Rules           []config.ForwardRule
	LaunchCommand   string
	SettleDelay     time.Duration
	SettleRetries   int
	ForwardAttempts int
	RetryBackoff    time.Duration
}

// SettingsFromConfig extracts controller settings from the loaded configuration.
func SettingsFromConfig(cfg config.AdbforwardConfig) Settings {
	return Settings{
		Rules:           append([]config.ForwardRule(nil), cfg.ForwardPorts...),
		LaunchCommand:   cfg.LaunchCommand,
		SettleDelay:     cfg.SettleDelay(),
		SettleRetries:   cfg.SettleRetries,
		ForwardAttempts: cfg.ForwardAttempts,
		RetryBackoff:    cfg.RetryBackoff(),
	}
}
