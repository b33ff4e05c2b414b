package config

import "adbforward/internal/device"

// DefaultLaunchCommand starts the ALVR client activity on the headset.
const DefaultLaunchCommand = "am start -n alvr.client.quest/com.polygraphene.alvr.OvrActivity"

// DefaultDownloadURL is the platform-tools archive published by Google.
const DefaultDownloadURL = "https://dl.google.com/android/repository/platform-tools-latest-{platform}.zip"

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() AdbforwardConfig {
	return AdbforwardConfig{
		AllowList: append([]string(nil), device.DefaultProducts...),
		ForwardPorts: []ForwardRule{
			{Local: 9943, Remote: 9943},
			{Local: 9944, Remote: 9944},
		},
		LaunchCommand:    DefaultLaunchCommand,
		SettleDelayMs:    1000,
		SettleRetries:    2,
		ForwardAttempts:  3,
		RetryBackoffMs:   250,
		CommandTimeoutMs: 10000,
		FlushIntervalMs:  100,
		ADB: ADBSettings{
			Host:               "127.0.0.1",
			Port:               5037,
			ToolsDir:           "adb",
			DownloadURL:        DefaultDownloadURL,
			ReconnectBackoffMs: 2000,
		},
	}
}
