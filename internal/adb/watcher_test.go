package adb

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffStates(t *testing.T) {
	tests := []struct {
		name string
		prev map[string]string
		next map[string]string
		want []Event
	}{
		{
			name: "new online device connects",
			prev: map[string]string{},
			next: map[string]string{"a": "device"},
			want: []Event{Connected("a")},
		},
		{
			name: "offline device does not connect",
			prev: map[string]string{},
			next: map[string]string{"a": "offline"},
			want: nil,
		},
		{
			name: "offline to device connects",
			prev: map[string]string{"a": "offline"},
			next: map[string]string{"a": "device"},
			want: []Event{Connected("a")},
		},
		{
			name: "removed device disconnects",
			prev: map[string]string{"a": "device", "b": "device"},
			next: map[string]string{"b": "device"},
			want: []Event{Disconnected("a")},
		},
		{
			name: "device going offline disconnects",
			prev: map[string]string{"a": "device"},
			next: map[string]string{"a": "offline"},
			want: []Event{Disconnected("a")},
		},
		{
			name: "events are ordered by serial",
			prev: map[string]string{"c": "device"},
			next: map[string]string{"b": "device", "a": "device"},
			want: []Event{Connected("a"), Connected("b"), Disconnected("c")},
		},
		{
			name: "unchanged snapshot is silent",
			prev: map[string]string{"a": "device"},
			next: map[string]string{"a": "device"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diffStates(tt.prev, tt.next))
		})
	}
}

func TestParseStates(t *testing.T) {
	states := parseStates("abc\tdevice\nxyz\toffline\n\n")
	assert.Equal(t, map[string]string{"abc": "device", "xyz": "offline"}, states)
}

func TestWatcher_Run(t *testing.T) {
	snapshots := []string{
		"",
		"abc\toffline\n",
		"abc\tdevice\n",
		"abc\tdevice\nxyz\tdevice\n",
		"xyz\tdevice\n",
	}

	release := make(chan struct{})
	srv := newFakeServer(t, func(conn net.Conn, req string) bool {
		if req != "host:track-devices" {
			fail(conn, "unexpected")
			return false
		}
		okay(conn)
		for _, s := range snapshots {
			frame(conn, s)
		}
		<-release
		return false
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(srv.client(), 50*time.Millisecond)
	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, events) }()

	want := []Event{Connected("abc"), Connected("xyz"), Disconnected("abc")}
	var got []Event
	for len(got) < len(want) {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", got)
		}
	}
	assert.Equal(t, want, got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	// Run closes the channel on exit.
	_, open := <-events
	assert.False(t, open)
}

func TestWatcher_ReconnectsAfterServerDrop(t *testing.T) {
	var connections atomic.Int32
	srv := newFakeServer(t, func(conn net.Conn, req string) bool {
		n := connections.Add(1)
		okay(conn)
		if n == 1 {
			frame(conn, "abc\tdevice\n")
			return false // drop the stream
		}
		frame(conn, "")
		return false
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(srv.client(), 10*time.Millisecond)
	events := make(chan Event, 4)
	go func() { _ = w.Run(ctx, events) }()

	var got []Event
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, Connected("abc"), got[0])
	assert.Equal(t, Disconnected("abc"), got[1])
}

func TestResyncStates(t *testing.T) {
	prev := map[string]string{"a": "device", "b": "device", "c": "device"}
	next := map[string]string{"a": "device", "b": "offline", "d": "device"}

	assert.Equal(t,
		[]Event{Disconnected("b"), Disconnected("c"), Connected("a"), Connected("d")},
		resyncStates(prev, next))
	assert.Equal(t, []Event{Connected("a")}, resyncStates(nil, map[string]string{"a": "device"}))
}

func TestWatcher_ReannouncesDevicesAfterReconnect(t *testing.T) {
	var connections atomic.Int32
	srv := newFakeServer(t, func(conn net.Conn, req string) bool {
		connections.Add(1)
		okay(conn)
		frame(conn, "abc\tdevice\n")
		return false // drop the stream after each snapshot
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(srv.client(), 10*time.Millisecond)
	events := make(chan Event, 4)
	go func() { _ = w.Run(ctx, events) }()

	var got []Event
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []Event{Connected("abc"), Connected("abc")}, got)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}
