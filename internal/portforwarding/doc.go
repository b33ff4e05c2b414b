// Package portforwarding installs ADB port forwards for qualifying devices.
//
// The Controller reacts to a single device-connected notification at a time.
// Its sequence for one serial is strictly ordered:
//
//  1. Wait the settle delay. The connect notification arrives before the
//     device reports its product, so the delay gives the metadata time to
//     appear. While the device is present but its product is still empty,
//     the wait is repeated up to SettleRetries more times.
//  2. Re-read the device list and pick the entry with the notified serial.
//     A device that has already gone away ends the sequence silently.
//  3. Check the product against the allow-list. Rejected devices are logged
//     and left alone.
//  4. Install every forward rule in order. Each rule gets ForwardAttempts
//     tries; a rule that still fails stops the sequence. Rules already
//     installed are left in place.
//  5. Run the launch command and stream its output into the sink.
//
// # Concurrency
//
// The Controller keeps no state between calls. OnDeviceConnected may run for
// several devices at once; each call only touches its own device's forwards.
// A panic inside one call is recovered and reported as OutcomeFailed.
//
// # Teardown
//
// Forwards are not removed when a device disconnects. The adb server drops a
// device's forwards together with its transport.
package portforwarding
