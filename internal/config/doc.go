// Package config provides configuration management for adbforward.
//
// Configuration is loaded from YAML and merged in layers, with later layers
// overriding earlier ones:
//
//  1. Default configuration (compiled in)
//  2. User configuration (~/.config/adbforward/config.yaml)
//  3. Project configuration (./.adbforward/config.yaml)
//
// A single explicit file can be used instead with LoadConfigFromPath.
//
// # Configuration Structure
//
//	allowList: [monterey, hollywood, pacific, vr_monterey, vr_hollywood, vr_pacific]
//	forwardPorts:
//	  - {local: 9943, remote: 9943}
//	  - {local: 9944, remote: 9944}
//	launchCommand: "am start -n alvr.client.quest/com.polygraphene.alvr.OvrActivity"
//	settleDelayMs: 1000     # wait after a connect notification before querying the device
//	settleRetries: 2        # extra waits while the product is still unknown
//	forwardAttempts: 3      # attempts per forward rule
//	retryBackoffMs: 250
//	commandTimeoutMs: 10000 # bound on every adb server request
//	flushIntervalMs: 100    # how often shell output is written to the console
//	adb:
//	  host: 127.0.0.1
//	  port: 5037
//	  toolsDir: adb
//	  downloadURL: "https://dl.google.com/android/repository/platform-tools-latest-{platform}.zip"
//	  skipDownload: false
//	  reconnectBackoffMs: 2000
//
// Keys missing from a layer keep the value of the layer below. Lists are
// replaced, not merged. The merged result is validated before it is returned.
package config
