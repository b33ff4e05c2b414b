package adb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrDeviceNotFound is returned when the server does not know the requested serial.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrProtocol is returned when the server sends something that is not valid ADB framing.
	ErrProtocol = errors.New("adb protocol error")
)

const maxPayload = 0xffff

// ServerError is a FAIL reply from the adb server.
type ServerError struct {
	Request string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("adb server rejected %q: %s", e.Request, e.Message)
}

// Is lets errors.Is match ErrDeviceNotFound for the server's "not found" replies.
func (e *ServerError) Is(target error) bool {
	return target == ErrDeviceNotFound && strings.Contains(e.Message, "not found")
}

func encodeRequest(req string) ([]byte, error) {
	if len(req) > maxPayload {
		return nil, fmt.Errorf("%w: request of %d bytes is too long", ErrProtocol, len(req))
	}
	return []byte(fmt.Sprintf("%04x%s", len(req), req)), nil
}

func writeRequest(w io.Writer, req string) error {
	data, err := encodeRequest(req)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to send %q: %w", req, err)
	}
	return nil
}

// readStatus consumes an OKAY or FAIL reply.
func readStatus(r io.Reader, req string) error {
	var status [4]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return fmt.Errorf("failed to read status for %q: %w", req, err)
	}
	switch string(status[:]) {
	case "OKAY":
		return nil
	case "FAIL":
		msg, err := readLengthPrefixed(r)
		if err != nil {
			return fmt.Errorf("failed to read FAIL message for %q: %w", req, err)
		}
		return &ServerError{Request: req, Message: msg}
	default:
		return fmt.Errorf("%w: unexpected status %q for %q", ErrProtocol, string(status[:]), req)
	}
}

func readLengthPrefixed(r io.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return "", fmt.Errorf("%w: bad length %q", ErrProtocol, string(hdr[:]))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// parseDevices parses host:devices-l output:
//
//	1WMHH000000000  device usb:1-1 product:hollywood model:Quest_2 device:hollywood transport_id:3
func parseDevices(out string) []DeviceInfo {
	var devices []DeviceInfo
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		d := DeviceInfo{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			key, value, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch key {
			case "product":
				d.Product = value
			case "model":
				d.Model = value
			case "device":
				d.Device = value
			case "transport_id":
				d.TransportID = value
			}
		}
		devices = append(devices, d)
	}
	return devices
}

// parseStates parses a host:track-devices snapshot ("serial\tstate" per line).
func parseStates(out string) map[string]string {
	states := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		states[fields[0]] = fields[1]
	}
	return states
}

// parseForwards parses host:list-forward output ("serial local remote" per line).
func parseForwards(out string) []Forward {
	var forwards []Forward
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		forwards = append(forwards, Forward{Serial: fields[0], Local: fields[1], Remote: fields[2]})
	}
	return forwards
}

// diffStates returns the events implied by moving from prev to next.
// A serial entering the "device" state connects; a serial leaving it disconnects.
// Events are ordered by serial.
func diffStates(prev, next map[string]string) []Event {
	seen := make(map[string]struct{}, len(prev)+len(next))
	for s := range prev {
		seen[s] = struct{}{}
	}
	for s := range next {
		seen[s] = struct{}{}
	}
	serials := make([]string, 0, len(seen))
	for s := range seen {
		serials = append(serials, s)
	}
	sort.Strings(serials)

	var events []Event
	for _, s := range serials {
		wasOnline := prev[s] == StateDevice
		isOnline := next[s] == StateDevice
		switch {
		case !wasOnline && isOnline:
			events = append(events, Connected(s))
		case wasOnline && !isOnline:
			events = append(events, Disconnected(s))
		}
	}
	return events
}

// resyncStates is diffStates for the first snapshot of a new tracking
// session: devices that are gone or offline disconnect, and every online
// device connects, whether or not it was online before.
func resyncStates(prev, next map[string]string) []Event {
	var events []Event
	for _, ev := range diffStates(prev, next) {
		if ev.Kind == EventDisconnected {
			events = append(events, ev)
		}
	}
	return append(events, diffStates(nil, next)...)
}
