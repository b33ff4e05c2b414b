package adb

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"adbforward/pkg/logging"
)

const subsystem = "ADB"

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client talks to an adb server. It holds no connection between calls, so a
// single Client is safe for concurrent use.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewClient creates a client for the adb server at host:port.
// A non-positive timeout selects DefaultTimeout.
func NewClient(host string, port int, timeout time.Duration) *Client {
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: timeout,
	}
}

// Addr returns the server address the client dials.
func (c *Client) Addr() string {
	return c.addr
}

// session is one socket to the server. Closing the caller's context closes it.
type session struct {
	conn net.Conn
	stop func() bool
}

func (s *session) Close() error {
	s.stop()
	return s.conn.Close()
}

func (c *Client) open(ctx context.Context) (*session, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to adb server at %s: %w", c.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	return &session{conn: conn, stop: stop}, nil
}

// request opens a session and sends req, leaving the session positioned after OKAY.
func (c *Client) request(ctx context.Context, req string) (*session, error) {
	s, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeRequest(s.conn, req); err != nil {
		s.Close()
		return nil, c.contextErr(ctx, err)
	}
	if err := readStatus(s.conn, req); err != nil {
		s.Close()
		return nil, c.contextErr(ctx, err)
	}
	return s, nil
}

// query sends req and returns the length-prefixed reply.
func (c *Client) query(ctx context.Context, req string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.request(ctx, req)
	if err != nil {
		return "", err
	}
	defer s.Close()

	out, err := readLengthPrefixed(s.conn)
	if err != nil {
		return "", c.contextErr(ctx, fmt.Errorf("failed to read reply to %q: %w", req, err))
	}
	return out, nil
}

// contextErr prefers the context's error when the socket failed because the
// context ended.
func (c *Client) contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%v: %w", err, ctxErr)
	}
	return err
}

// Connect checks that the server is reachable and returns its protocol version.
func (c *Client) Connect(ctx context.Context) (int, error) {
	out, err := c.query(ctx, "host:version")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(out), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad version %q", ErrProtocol, out)
	}
	logging.Debug(subsystem, "Connected to adb server %s (protocol version %d)", c.addr, v)
	return int(v), nil
}

// ListDevices returns a snapshot of attached devices.
func (c *Client) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := c.query(ctx, "host:devices-l")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

// ListForwards returns every forward the server currently holds.
func (c *Client) ListForwards(ctx context.Context) ([]Forward, error) {
	out, err := c.query(ctx, "host:list-forward")
	if err != nil {
		return nil, err
	}
	return parseForwards(out), nil
}

// CreateForward forwards local TCP port local to remote on the device.
func (c *Client) CreateForward(ctx context.Context, serial string, local, remote uint16) error {
	req := fmt.Sprintf("host-serial:%s:forward:tcp:%d;tcp:%d", serial, local, remote)
	return c.exchangeTwice(ctx, req)
}

// RemoveForward removes the forward on local TCP port local for the device.
func (c *Client) RemoveForward(ctx context.Context, serial string, local uint16) error {
	req := fmt.Sprintf("host-serial:%s:killforward:tcp:%d", serial, local)
	return c.exchangeTwice(ctx, req)
}

// exchangeTwice handles forward requests: the first status acknowledges the
// transport switch, the second reports the result.
func (c *Client) exchangeTwice(ctx context.Context, req string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.request(ctx, req)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := readStatus(s.conn, req); err != nil {
		return c.contextErr(ctx, err)
	}
	return nil
}

// ExecuteRemoteCommand runs command in a shell on the device and writes each
// output line to sink in order. It returns once the command's output ends.
func (c *Client) ExecuteRemoteCommand(ctx context.Context, serial, command string, sink LineSink) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.request(ctx, "host:transport:"+serial)
	if err != nil {
		return err
	}
	defer s.Close()

	req := "shell:" + command
	if err := writeRequest(s.conn, req); err != nil {
		return c.contextErr(ctx, err)
	}
	if err := readStatus(s.conn, req); err != nil {
		return c.contextErr(ctx, err)
	}

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		if sink != nil {
			sink.WriteLine(strings.TrimRight(scanner.Text(), "\r"))
		}
	}
	if err := scanner.Err(); err != nil {
		return c.contextErr(ctx, fmt.Errorf("failed reading output of %q on %s: %w", command, serial, err))
	}
	return nil
}
