package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adbforward/internal/adb"
	"adbforward/internal/config"
	"adbforward/internal/device"
	"adbforward/pkg/logging"
)

const subsystem = "Forwarder"

// Controller runs the forwarding sequence for newly connected devices.
type Controller struct {
	transport Transport
	allow     *device.AllowList
	settings  Settings
	sink      adb.LineSink
	updateFn  UpdateFunc

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController wires a controller. sink receives launch command output and
// updateFn, if non-nil, receives progress reports.
func NewController(transport Transport, allow *device.AllowList, settings Settings, sink adb.LineSink, updateFn UpdateFunc) *Controller {
	if settings.ForwardAttempts < 1 {
		settings.ForwardAttempts = 1
	}
	return &Controller{
		transport: transport,
		allow:     allow,
		settings:  settings,
		sink:      sink,
		updateFn:  updateFn,
		sleep:     sleepContext,
	}
}

// OnDeviceConnected handles a connect notification for serial and reports the
// outcome. It blocks for the settle delay and for every transport call.
func (c *Controller) OnDeviceConnected(ctx context.Context, serial string) (res Result) {
	res = Result{Serial: serial}
	sub := subsystem + "-" + serial

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic while forwarding %s: %v", serial, r)
			logging.Error(sub, res.Err, "Recovered from panic")
		}
		c.report(StatusDone, res)
	}()

	dev, found, err := c.settle(ctx, serial)
	switch {
	case err != nil:
		return c.fail(sub, res, err, "Failed to inspect device")
	case !found:
		logging.Debug(sub, "Device left before it could be inspected")
		res.Outcome = OutcomeGone
		return res
	}
	res.Device = dev

	if !c.allow.IsAllowed(dev.Product) {
		logging.Warn(sub, "Skipped forwarding device %s (product %q not allowed)", dev.DisplayName(), dev.Product)
		res.Outcome = OutcomeRejected
		return res
	}

	for _, rule := range c.settings.Rules {
		if err := c.installForward(ctx, sub, serial, rule); err != nil {
			if ctx.Err() != nil {
				res.Outcome = OutcomeCancelled
				res.Err = err
				return res
			}
			res.Outcome = OutcomeForwardFailed
			res.Err = err
			logging.Error(sub, err, "Forwarding incomplete, %d of %d rules installed", len(res.Forwarded), len(c.settings.Rules))
			return res
		}
		res.Forwarded = append(res.Forwarded, rule)
	}
	logging.Debug(sub, "Forwarded device %s [%s]: %v", serial, dev.Product, res.Forwarded)
	c.report(StatusForwarded, res)

	if err := c.transport.ExecuteRemoteCommand(ctx, serial, c.settings.LaunchCommand, c.sink); err != nil {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			res.Err = err
			return res
		}
		res.Outcome = OutcomeLaunchFailed
		res.Err = fmt.Errorf("launch command failed on %s: %w", serial, err)
		logging.Error(sub, err, "Launch command %q failed", c.settings.LaunchCommand)
		return res
	}

	res.Outcome = OutcomeLaunched
	return res
}

func (c *Controller) fail(sub string, res Result, err error, msg string) Result {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		res.Outcome = OutcomeCancelled
		res.Err = err
		logging.Debug(sub, "%s: %v", msg, err)
		return res
	}
	res.Outcome = OutcomeFailed
	res.Err = err
	logging.Error(sub, err, "%s", msg)
	return res
}

// settle waits for the device's metadata and returns its snapshot entry.
// found is false when the device is no longer attached.
func (c *Controller) settle(ctx context.Context, serial string) (dev adb.DeviceInfo, found bool, err error) {
	for attempt := 0; ; attempt++ {
		if err := c.sleep(ctx, c.settings.SettleDelay); err != nil {
			return adb.DeviceInfo{}, false, err
		}

		devices, err := c.transport.ListDevices(ctx)
		if err != nil {
			return adb.DeviceInfo{}, false, fmt.Errorf("failed to list devices: %w", err)
		}

		dev, found = findDevice(devices, serial)
		if !found || dev.Product != "" || attempt >= c.settings.SettleRetries {
			return dev, found, nil
		}
		logging.Debug(subsystem+"-"+serial, "Product not reported yet, waiting again (%d/%d)", attempt+1, c.settings.SettleRetries)
	}
}

func findDevice(devices []adb.DeviceInfo, serial string) (adb.DeviceInfo, bool) {
	for _, d := range devices {
		if d.Serial == serial {
			return d, true
		}
	}
	return adb.DeviceInfo{}, false
}

// installForward tries rule up to ForwardAttempts times. Unknown-device
// errors are not retried.
func (c *Controller) installForward(ctx context.Context, sub, serial string, rule config.ForwardRule) error {
	var err error
	for attempt := 1; attempt <= c.settings.ForwardAttempts; attempt++ {
		err = c.transport.CreateForward(ctx, serial, rule.Local, rule.Remote)
		if err == nil {
			logging.Debug(sub, "Installed forward %s", rule)
			return nil
		}
		if errors.Is(err, adb.ErrDeviceNotFound) || ctx.Err() != nil || attempt == c.settings.ForwardAttempts {
			break
		}
		logging.Warn(sub, "Forward %s failed (attempt %d/%d), retrying in %s: %v",
			rule, attempt, c.settings.ForwardAttempts, c.settings.RetryBackoff, err)
		if serr := c.sleep(ctx, c.settings.RetryBackoff); serr != nil {
			return fmt.Errorf("forward %s for %s: %w", rule, serial, serr)
		}
	}
	return fmt.Errorf("forward %s for %s: %w", rule, serial, err)
}

func (c *Controller) report(status Status, res Result) {
	if c.updateFn != nil {
		c.updateFn(status, res)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
