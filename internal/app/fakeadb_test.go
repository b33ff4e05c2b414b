package app

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeADB is a minimal in-process adb server. handle returns true when the
// connection should keep reading requests.
type fakeADB struct {
	ln     net.Listener
	handle func(conn net.Conn, req string) bool

	mu       sync.Mutex
	requests []string
	wg       sync.WaitGroup
}

func newFakeADB(t *testing.T, handle func(conn net.Conn, req string) bool) *fakeADB {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeADB{ln: ln, handle: handle}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeADB) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeADB) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer conn.Close()
			for {
				req, err := readRequest(conn)
				if err != nil {
					return
				}
				f.mu.Lock()
				f.requests = append(f.requests, req)
				f.mu.Unlock()
				if !f.handle(conn, req) {
					return
				}
			}
		}()
	}
}

func (f *fakeADB) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func readRequest(r io.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeOkay(w io.Writer, payload string) {
	_, _ = fmt.Fprintf(w, "OKAY%04x%s", len(payload), payload)
}

func writeFrame(w io.Writer, payload string) {
	_, _ = fmt.Fprintf(w, "%04x%s", len(payload), payload)
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
