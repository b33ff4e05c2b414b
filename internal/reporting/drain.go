package reporting

import (
	"context"
	"sync"
	"time"
)

// Sink receives drained output lines.
type Sink interface {
	WriteLine(line string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

func (f SinkFunc) WriteLine(line string) { f(line) }

// DrainStats is a snapshot of drain counters.
type DrainStats struct {
	Enqueued int64
	Flushed  int64
	Pending  int
}

// Drain buffers output lines from remote command callbacks and hands them to a
// sink on Flush. Any number of goroutines may Enqueue; flushes are serialized
// so the sink observes lines in FIFO order.
type Drain struct {
	sink Sink

	mu       sync.Mutex
	queue    []string
	head     int
	enqueued int64
	flushed  int64

	flushMu sync.Mutex
}

// NewDrain creates a Drain that flushes into sink.
func NewDrain(sink Sink) *Drain {
	return &Drain{sink: sink}
}

// Enqueue appends line to the queue. It never blocks on the sink.
func (d *Drain) Enqueue(line string) {
	d.mu.Lock()
	d.queue = append(d.queue, line)
	d.enqueued++
	d.mu.Unlock()
}

// WriteLine enqueues line, so a Drain can be handed to producers as a sink.
func (d *Drain) WriteLine(line string) {
	d.Enqueue(line)
}

// pop removes the oldest line. The lock is held only for the pop itself.
func (d *Drain) pop() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.head >= len(d.queue) {
		return "", false
	}
	line := d.queue[d.head]
	d.queue[d.head] = ""
	d.head++
	d.flushed++

	switch {
	case d.head == len(d.queue):
		d.queue = d.queue[:0]
		d.head = 0
	case d.head > 64 && d.head > len(d.queue)/2:
		n := copy(d.queue, d.queue[d.head:])
		d.queue = d.queue[:n]
		d.head = 0
	}
	return line, true
}

// Flush writes queued lines to the sink until the queue is observed empty and
// returns how many lines it wrote. Lines enqueued while a flush is running may
// be written by this flush or the next one.
func (d *Drain) Flush() int {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	n := 0
	for {
		line, ok := d.pop()
		if !ok {
			return n
		}
		if d.sink != nil {
			d.sink.WriteLine(line)
		}
		n++
	}
}

// Len returns the number of queued lines.
func (d *Drain) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue) - d.head
}

// Stats returns a snapshot of the drain counters.
func (d *Drain) Stats() DrainStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DrainStats{
		Enqueued: d.enqueued,
		Flushed:  d.flushed,
		Pending:  len(d.queue) - d.head,
	}
}

// Run flushes every interval until ctx is done, then flushes once more.
func (d *Drain) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Flush()
			return nil
		case <-ticker.C:
			d.Flush()
		}
	}
}
