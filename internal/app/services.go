package app

import (
	"context"
	"fmt"

	"adbforward/internal/adb"
	"adbforward/internal/color"
	"adbforward/internal/device"
	"adbforward/internal/dispatcher"
	"adbforward/internal/portforwarding"
	"adbforward/internal/reporting"
)

// Services holds all the initialized services
type Services struct {
	Client     *adb.Client
	Watcher    *adb.Watcher
	AllowList  *device.AllowList
	Console    *color.Console
	Drain      *reporting.Drain
	Controller *portforwarding.Controller
	Dispatcher *dispatcher.Dispatcher
}

// InitializeServices builds the service graph from a loaded configuration.
// Nothing is started and no connection is made.
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg.AdbforwardConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	ac := cfg.AdbforwardConfig

	allow, err := device.NewAllowList(ac.AllowList)
	if err != nil {
		return nil, err
	}

	client := adb.NewClient(ac.ADB.Host, ac.ADB.Port, ac.CommandTimeout())
	console := color.NewConsole(cfg.Console)
	drain := reporting.NewDrain(console)

	controller := portforwarding.NewController(
		client,
		allow,
		portforwarding.SettingsFromConfig(*ac),
		drain,
		consoleUpdates(console),
	)

	disp := dispatcher.New(
		func(ctx context.Context, serial string) {
			console.Connected(serial)
			controller.OnDeviceConnected(ctx, serial)
		},
		console.Disconnected,
	)

	return &Services{
		Client:     client,
		Watcher:    adb.NewWatcher(client, ac.ReconnectBackoff()),
		AllowList:  allow,
		Console:    console,
		Drain:      drain,
		Controller: controller,
		Dispatcher: disp,
	}, nil
}

// consoleUpdates prints controller progress the way a user watching the
// terminal expects: silence for devices that left, one line otherwise.
func consoleUpdates(console *color.Console) portforwarding.UpdateFunc {
	return func(status portforwarding.Status, res portforwarding.Result) {
		if status == portforwarding.StatusForwarded {
			console.Forwarded(res.Serial, res.Device.Product)
			return
		}
		switch res.Outcome {
		case portforwarding.OutcomeRejected:
			console.Skipped(res.Device.DisplayName())
		case portforwarding.OutcomeForwardFailed, portforwarding.OutcomeLaunchFailed, portforwarding.OutcomeFailed:
			console.Failed(res.Serial, res.Err)
		}
	}
}
