// Package adb is a small client for the ADB host protocol spoken by a local
// adb server (by default on 127.0.0.1:5037).
//
// It covers what adbforward needs from the server:
//   - Listing attached devices with their product metadata (host:devices-l)
//   - Installing and removing TCP forwards (host-serial:<serial>:forward)
//   - Running shell commands on a device and streaming their output
//   - Tracking device attach/detach (host:track-devices)
//
// # Wire Format
//
// Every request is a 4 hex digit length followed by the payload. The server
// answers with "OKAY" or with "FAIL" followed by a length-prefixed message:
//
//	000chost:version  ->  OKAY0004001f
//
// # Timeouts
//
// Every request made through Client is bounded by the client's timeout and by
// the caller's context. Cancelling the context closes the underlying socket.
//
// # Device Tracking
//
// Watcher holds a host:track-devices connection open and turns successive
// device snapshots into Event values on a channel. It reconnects with a
// fixed backoff when the server goes away.
package adb
