package adb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adbforward/pkg/logging"
)

// DefaultReconnectBackoff is the pause between track-devices reconnect attempts.
const DefaultReconnectBackoff = 2 * time.Second

// Watcher turns host:track-devices snapshots into connect/disconnect events.
type Watcher struct {
	client  *Client
	backoff time.Duration

	// known is only touched by the Run goroutine.
	known map[string]string
}

// NewWatcher creates a Watcher using client's server address.
func NewWatcher(client *Client, backoff time.Duration) *Watcher {
	if backoff <= 0 {
		backoff = DefaultReconnectBackoff
	}
	return &Watcher{
		client:  client,
		backoff: backoff,
		known:   make(map[string]string),
	}
}

// Run tracks devices until ctx is cancelled, sending events on out.
// It closes out before returning.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	for {
		err := w.track(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		logging.Warn(subsystem, "Device tracking interrupted, reconnecting in %s: %v", w.backoff, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.backoff):
		}
	}
}

func (w *Watcher) track(ctx context.Context, out chan<- Event) error {
	dialCtx, cancel := context.WithTimeout(ctx, w.client.timeout)
	s, err := w.client.open(dialCtx)
	if err != nil {
		cancel()
		return err
	}
	// Detach from the dial context before cancelling it, then bind the socket
	// to ctx for the long-lived read.
	s.stop()
	cancel()
	_ = s.conn.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()
	defer s.conn.Close()

	const req = "host:track-devices"
	if err := writeRequest(s.conn, req); err != nil {
		return err
	}
	if err := readStatus(s.conn, req); err != nil {
		return err
	}
	logging.Debug(subsystem, "Tracking devices on %s", w.client.addr)

	for first := true; ; first = false {
		snapshot, err := readLengthPrefixed(s.conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("track-devices stream ended: %w", err)
		}
		next := parseStates(snapshot)
		events := diffStates(w.known, next)
		if first {
			// The server may have restarted and dropped every transport with
			// its forwards, so each online device is announced again.
			events = resyncStates(w.known, next)
		}
		if err := w.apply(ctx, next, events, out); err != nil {
			return err
		}
	}
}

func (w *Watcher) apply(ctx context.Context, next map[string]string, events []Event, out chan<- Event) error {
	w.known = next
	for _, ev := range events {
		logging.Debug(subsystem, "Device %s: %s", ev.Serial, ev.Kind)
		select {
		case out <- ev:
		case <-ctx.Done():
			return errors.Join(ctx.Err(), fmt.Errorf("dropped %s event for %s", ev.Kind, ev.Serial))
		}
	}
	return nil
}
