// Package emulator implements the TCP services that stand in for the
// physical ammeters. Each server owns one listener, one measurement model,
// and one randomness source; servers share no state with each other.
package emulator

import (
	"bufio"
	"context"
	"log"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/gridsense/ammbench/pkg/device"
)

// ErrUnknownCommand is the reply sent for any command line that does not
// exactly match the device's measurement command. It is the emulator's only
// error path and never terminates the service.
const ErrUnknownCommand = "ERR unknown command"

// change for more useful testing
var printFn = log.Printf

// Config describes one emulator instance.
type Config struct {
	Endpoint device.Endpoint
	// Seed for the instance's randomness source; 0 means seed from the clock.
	Seed int64
	// MaxReplyRate throttles replies per second to emulate a slow
	// instrument; 0 disables the throttle.
	MaxReplyRate float64
}

// Server emulates one ammeter on one TCP port: accept loop, one goroutine
// per accepted connection, newline-framed text commands and replies.
type Server struct {
	endpoint device.Endpoint
	model    device.Model
	limiter  *rate.Limiter

	ln       net.Listener
	served   atomic.Uint64
	rejected atomic.Uint64
}

// NewServer builds a server for the endpoint's device kind with its own
// seeded measurement model.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Endpoint.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	model, err := device.NewModel(cfg.Endpoint.Kind, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	s := &Server{endpoint: cfg.Endpoint, model: model}
	if cfg.MaxReplyRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxReplyRate), 1)
	}
	return s, nil
}

// Addr returns the listener's address once the server is listening; useful
// when the configured port is 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Served returns how many measurement commands this instance has answered.
func (s *Server) Served() uint64 { return s.served.Load() }

// Rejected returns how many malformed commands this instance has refused.
func (s *Server) Rejected() uint64 { return s.rejected.Load() }

// Listen binds the endpoint's port. Split from Serve so callers can learn
// the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.endpoint.Addr())
	if err != nil {
		return errors.Wrapf(err, "%s emulator cannot bind %s", s.endpoint.Kind, s.endpoint.Addr())
	}
	s.ln = ln
	printFn("%s emulator listening on %s", s.endpoint.Kind, ln.Addr())
	return nil
}

// Serve runs the accept loop until ctx is canceled. Each accepted
// connection is handled on its own goroutine and stays open across
// commands.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				printFn("%s emulator stopped: served %d, rejected %d",
					s.endpoint.Kind, s.served.Load(), s.rejected.Load())
				return nil
			default:
			}
			return errors.Wrapf(err, "%s emulator accept failed", s.endpoint.Kind)
		}
		go s.handleConn(ctx, conn)
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// client went away, or listener closed under us
			return
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
		}
		reply := s.respond(strings.TrimRight(line, "\r\n"))
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

// respond implements the per-connection command state machine: an exact
// command match computes a measurement, anything else is rejected with an
// error reply and the connection stays usable.
func (s *Server) respond(command string) string {
	if command != s.endpoint.Command {
		s.rejected.Inc()
		return ErrUnknownCommand
	}
	s.served.Inc()
	return strconv.FormatFloat(s.model.Measure(), 'f', -1, 64)
}
