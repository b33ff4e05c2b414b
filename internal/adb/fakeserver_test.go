package adb

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHandler serves one request. It returns true if the connection should
// keep reading further requests (as after host:transport).
type fakeHandler func(conn net.Conn, req string) bool

// fakeServer is an in-process adb server speaking just enough protocol for tests.
type fakeServer struct {
	t        *testing.T
	ln       net.Listener
	handler  fakeHandler
	mu       sync.Mutex
	requests []string
	wg       sync.WaitGroup
}

func newFakeServer(t *testing.T, handler fakeHandler) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{t: t, ln: ln, handler: handler}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			for {
				req, err := readFakeRequest(conn)
				if err != nil {
					return
				}
				s.mu.Lock()
				s.requests = append(s.requests, req)
				s.mu.Unlock()
				if !s.handler(conn, req) {
					return
				}
			}
		}()
	}
}

func (s *fakeServer) client() *Client {
	addr := s.ln.Addr().(*net.TCPAddr)
	return NewClient(addr.IP.String(), addr.Port, 0)
}

func (s *fakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func readFakeRequest(r io.Reader) (string, error) {
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

func okay(w io.Writer) {
	_, _ = io.WriteString(w, "OKAY")
}

func okayWith(w io.Writer, payload string) {
	_, _ = fmt.Fprintf(w, "OKAY%04x%s", len(payload), payload)
}

func fail(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "FAIL%04x%s", len(msg), msg)
}

func frame(w io.Writer, payload string) {
	_, _ = fmt.Fprintf(w, "%04x%s", len(payload), payload)
}
