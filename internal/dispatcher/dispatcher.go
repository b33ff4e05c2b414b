// Package dispatcher routes device connection events to their handlers.
package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"adbforward/internal/adb"
	"adbforward/pkg/logging"
)

const subsystem = "Dispatcher"

// ConnectHandler handles one device-connected event. It may block.
type ConnectHandler func(ctx context.Context, serial string)

// DisconnectHandler is told about a device-disconnected event. It must not block.
type DisconnectHandler func(serial string)

// Dispatcher consumes an event channel. Each connect event runs its handler in
// a goroutine of its own, so one slow or failing device never holds up events
// for the others. Disconnect events are only reported.
type Dispatcher struct {
	onConnect    ConnectHandler
	onDisconnect DisconnectHandler

	// handlers is a plain Group: one handler returning never stops the others.
	handlers errgroup.Group
}

// New creates a Dispatcher. onDisconnect may be nil.
func New(onConnect ConnectHandler, onDisconnect DisconnectHandler) *Dispatcher {
	return &Dispatcher{onConnect: onConnect, onDisconnect: onDisconnect}
}

// Run dispatches events until events is closed or ctx is done, then waits for
// in-flight connect handlers to return.
func (d *Dispatcher) Run(ctx context.Context, events <-chan adb.Event) error {
	defer func() { _ = d.handlers.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev adb.Event) {
	switch ev.Kind {
	case adb.EventConnected:
		logging.Debug(subsystem, "Connected device: %s", ev.Serial)
		if d.onConnect == nil {
			return
		}
		d.handlers.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logging.Error(subsystem, fmt.Errorf("%v", r), "Connect handler for %s panicked", ev.Serial)
				}
			}()
			d.onConnect(ctx, ev.Serial)
			return nil
		})
	case adb.EventDisconnected:
		logging.Debug(subsystem, "Disconnected device: %s", ev.Serial)
		if d.onDisconnect != nil {
			d.onDisconnect(ev.Serial)
		}
	default:
		logging.Warn(subsystem, "Ignoring unknown event %s for %s", ev.Kind, ev.Serial)
	}
}
