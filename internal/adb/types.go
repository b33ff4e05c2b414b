package adb

import "fmt"

// DefaultPort is the port the adb server listens on.
const DefaultPort = 5037

// StateDevice is the state of a device that is online and authorized.
const StateDevice = "device"

// DeviceInfo is a snapshot entry from the device list.
// Product may still be empty right after a device attaches.
type DeviceInfo struct {
	Serial      string
	State       string
	Product     string
	Model       string
	Device      string
	TransportID string
}

// DisplayName returns the product when known, otherwise the serial.
func (d DeviceInfo) DisplayName() string {
	if d.Product == "" {
		return d.Serial
	}
	return d.Product
}

// Forward is one entry from the server's forward list.
type Forward struct {
	Serial string
	Local  string
	Remote string
}

// EventKind tags a device connection event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a device attach or detach notification.
type Event struct {
	Kind   EventKind
	Serial string
}

// Connected builds a connect event for serial.
func Connected(serial string) Event { return Event{Kind: EventConnected, Serial: serial} }

// Disconnected builds a disconnect event for serial.
func Disconnected(serial string) Event { return Event{Kind: EventDisconnected, Serial: serial} }

// LineSink receives shell output one line at a time, in order.
type LineSink interface {
	WriteLine(line string)
}

// LineSinkFunc adapts a function to LineSink.
type LineSinkFunc func(line string)

func (f LineSinkFunc) WriteLine(line string) { f(line) }
