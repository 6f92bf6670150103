// Package client implements the measurement poller: it dials an emulated
// ammeter, sends the device's command, and parses the reply into a current
// value, retrying transient failures with jittered exponential backoff.
package client

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/gridsense/ammbench/pkg/device"
)

const (
	// DefaultTimeout bounds one request/reply exchange, matching the 2s
	// socket timeout of the instruments being emulated.
	DefaultTimeout = 2 * time.Second
	// DefaultRetries is how many times a transient failure is retried
	// before it is surfaced.
	DefaultRetries = 3

	backoffMin = 50 * time.Millisecond
	backoffMax = 1 * time.Second
)

// Config tunes one client instance.
type Config struct {
	// Timeout bounds each connect and each request/reply exchange.
	Timeout time.Duration
	// Retries is the transient-failure retry budget per measurement.
	Retries int
}

// Conn is one live connection to a device endpoint.
type Conn struct {
	endpoint device.Endpoint
	nc       net.Conn
	r        *bufio.Reader
	timeout  time.Duration
}

// Client polls device endpoints. It keeps at most one connection per
// endpoint and reconnects lazily after transient failures. A Client is not
// safe for concurrent use; the scheduler gives each device task its own.
type Client struct {
	cfg   Config
	conns map[string]*Conn
}

// New returns a Client, applying defaults for unset config fields.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}
	return &Client{cfg: cfg, conns: make(map[string]*Conn)}
}

// Connect dials the endpoint. The returned handle stays usable across
// requests until a transport error occurs.
func (c *Client) Connect(endpoint device.Endpoint) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", endpoint.Addr(), c.cfg.Timeout)
	if err != nil {
		return nil, newError(FailureConnection,
			errors.Wrapf(err, "connecting to %s at %s", endpoint.Kind, endpoint.Addr()))
	}
	return &Conn{endpoint: endpoint, nc: nc, r: bufio.NewReader(nc), timeout: c.cfg.Timeout}, nil
}

// Request sends one command line and reads one reply line within the
// connection's timeout.
func (conn *Conn) Request(command string) (string, error) {
	deadline := time.Now().Add(conn.timeout)
	if err := conn.nc.SetDeadline(deadline); err != nil {
		return "", newError(FailureConnection, errors.Wrap(err, "setting deadline"))
	}
	if _, err := conn.nc.Write([]byte(command + "\n")); err != nil {
		return "", classifyTransport(err, "sending command")
	}
	line, err := conn.r.ReadString('\n')
	if err != nil {
		return "", classifyTransport(err, "awaiting reply")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close releases the connection.
func (conn *Conn) Close() error {
	return conn.nc.Close()
}

func classifyTransport(err error, op string) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return newError(FailureTimeout, errors.Wrap(err, op))
	}
	return newError(FailureConnection, errors.Wrap(err, op))
}

// ParseSample converts a raw reply into a current value. An empty or ERR
// reply is a protocol failure; non-numeric or implausible content is a
// parse failure.
func ParseSample(raw string, kind device.Kind) (float64, error) {
	if raw == "" || strings.HasPrefix(raw, "ERR") {
		return 0, newError(FailureProtocol,
			errors.Errorf("%s rejected the command: %q", kind, raw))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, newError(FailureParse,
			errors.Wrapf(err, "non-numeric reply %q from %s", raw, kind))
	}
	min, max := kind.PlausibleRange()
	if v < min || v > max {
		return 0, newError(FailureParse,
			errors.Errorf("reply %v from %s outside plausible range [%v, %v]", v, kind, min, max))
	}
	return v, nil
}

// Measure performs one measurement against the endpoint: lazy (re)connect,
// request, parse. Transient failures are retried up to the configured budget
// with backoff; protocol and parse failures return immediately. The returned
// latency covers the final attempt's request/reply exchange.
func (c *Client) Measure(ctx context.Context, endpoint device.Endpoint) (float64, time.Duration, error) {
	b := &backoff.Backoff{Min: backoffMin, Max: backoffMax, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return 0, 0, newError(FailureConnection, ctx.Err())
			}
		}
		conn, err := c.conn(endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		start := time.Now()
		raw, err := conn.Request(endpoint.Command)
		took := time.Since(start)
		if err != nil {
			c.dropConn(endpoint)
			if IsTransient(err) {
				lastErr = err
				continue
			}
			return 0, took, err
		}
		v, err := ParseSample(raw, endpoint.Kind)
		if err != nil {
			// the exchange worked; the content is what failed
			return 0, took, err
		}
		return v, took, nil
	}
	return 0, 0, lastErr
}

// Close drops all cached connections.
func (c *Client) Close() {
	for key, conn := range c.conns {
		conn.Close()
		delete(c.conns, key)
	}
}

func (c *Client) conn(endpoint device.Endpoint) (*Conn, error) {
	if conn, ok := c.conns[endpoint.Addr()]; ok {
		return conn, nil
	}
	conn, err := c.Connect(endpoint)
	if err != nil {
		return nil, err
	}
	c.conns[endpoint.Addr()] = conn
	return conn, nil
}

func (c *Client) dropConn(endpoint device.Endpoint) {
	if conn, ok := c.conns[endpoint.Addr()]; ok {
		conn.Close()
		delete(c.conns, endpoint.Addr())
	}
}
