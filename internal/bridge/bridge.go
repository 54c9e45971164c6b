// Package bridge maintains one long-lived session to an external
// tool-execution peer while presenting a blocking request/response interface
// to arbitrary calling goroutines.
//
// The peer protocol is not safe for uncoordinated concurrent access, so every
// operation is marshaled onto a single dedicated worker goroutine that owns
// the connection exclusively. Callers block until the worker produces a
// result or a bounded deadline elapses; an expired wait abandons the result
// without disturbing the worker's state.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sentinel errors for bridge operations.
var (
	// ErrConnection indicates the peer connection or its initialization
	// handshake failed.
	ErrConnection = errors.New("bridge: connection failed")

	// ErrNotConnected indicates an operation was attempted before a
	// successful Connect.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrDeadline indicates the calling side gave up waiting. The work may
	// still complete on the worker afterwards.
	ErrDeadline = errors.New("bridge: call deadline exceeded")

	// ErrClosed indicates the session has been closed.
	ErrClosed = errors.New("bridge: session closed")
)

// Tool describes one callable operation advertised by the peer.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Result is the payload of one tool invocation. IsError marks a tool-level
// failure reported by the peer; transport-level failures surface as errors.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Peer is the tool-execution peer protocol consumed by the Session. Connect
// establishes the connection and performs the initialization handshake; Close
// undoes both in reverse order and must tolerate a never-completed Connect.
type Peer interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (Result, error)
	Close() error
}

// State is the connection state of a Session.
type State int32

// Session connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Default deadlines for bridge calls.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultCallTimeout    = 120 * time.Second
)

// Config controls Session deadlines.
type Config struct {
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// Session owns one live connection to the tool-execution peer. Create with
// NewSession, establish with Connect, tear down with Close. A closed Session
// cannot be reused; callers holding a Session behind a lazy singleton should
// reset the singleton after Close.
type Session struct {
	peer   Peer
	logger *slog.Logger
	config Config

	tasks    chan func()
	quit     chan struct{}
	quitOnce sync.Once

	state atomic.Int32

	// tools is the catalog fetched at connect time. Owned by the worker
	// goroutine; callers receive copies.
	tools []Tool
}

// NewSession creates a Session over the given peer and starts its worker.
func NewSession(peer Peer, logger *slog.Logger, cfg Config) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		peer:   peer,
		logger: logger,
		config: cfg.withDefaults(),
		tasks:  make(chan func()),
		quit:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// loop drains the task queue. It is the only goroutine that touches the peer.
func (s *Session) loop() {
	for {
		select {
		case task := <-s.tasks:
			task()
		case <-s.quit:
			return
		}
	}
}

// submit runs fn on the worker goroutine and blocks until it finishes, the
// deadline elapses, or ctx is canceled. The result channel is buffered so an
// abandoned wait never blocks the worker.
func (s *Session) submit(ctx context.Context, timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	task := func() { done <- fn() }

	select {
	case s.tasks <- task:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w (%s)", ErrDeadline, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect establishes the peer connection, performs the initialization
// handshake, and fetches the tool catalog once as a liveness check. The
// transition is atomic from the caller's point of view: on any step's failure
// everything acquired so far is rolled back and the state returns to
// disconnected.
func (s *Session) Connect(ctx context.Context) error {
	return s.submit(ctx, s.config.ConnectTimeout, func() error {
		switch s.State() {
		case StateConnected:
			return nil
		case StateClosing, StateClosed:
			return ErrClosed
		}

		s.setState(StateConnecting)

		cctx, cancel := context.WithTimeout(context.Background(), s.config.ConnectTimeout)
		defer cancel()

		if err := s.peer.Connect(cctx); err != nil {
			s.setState(StateDisconnected)
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}

		tools, err := s.peer.ListTools(cctx)
		if err != nil {
			_ = s.peer.Close()
			s.setState(StateDisconnected)
			return fmt.Errorf("%w: listing tools: %v", ErrConnection, err)
		}

		s.tools = tools
		s.setState(StateConnected)
		s.logger.Info("bridge connected", "tools", len(tools))
		return nil
	})
}

// Tools returns the tool catalog fetched at connect time. Set refresh to
// re-fetch from the peer; the catalog is otherwise assumed stable for the
// session's lifetime.
func (s *Session) Tools(ctx context.Context, refresh bool) ([]Tool, error) {
	var out []Tool
	err := s.submit(ctx, s.config.CallTimeout, func() error {
		if s.State() != StateConnected {
			return ErrNotConnected
		}
		if refresh {
			cctx, cancel := context.WithTimeout(context.Background(), s.config.CallTimeout)
			defer cancel()
			tools, err := s.peer.ListTools(cctx)
			if err != nil {
				return err
			}
			s.tools = tools
		}
		out = append(out, s.tools...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CallTool forwards one invocation to the peer and returns its result
// payload. Concurrent callers are serialized through the worker; the peer
// never sees overlapping requests.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	var out Result
	err := s.submit(ctx, s.config.CallTimeout, func() error {
		if s.State() != StateConnected {
			return ErrNotConnected
		}
		cctx, cancel := context.WithTimeout(context.Background(), s.config.CallTimeout)
		defer cancel()

		result, err := s.peer.CallTool(cctx, name, args)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

// Close tears the session down: the peer (which undoes the handshake before
// the underlying connection, in reverse order of acquisition) is closed if a
// connection was ever made, and the worker stops. Closing a session that
// never connected is a no-op success. Close is idempotent.
func (s *Session) Close() error {
	var closeErr error
	err := s.submit(context.Background(), s.config.ConnectTimeout, func() error {
		switch s.State() {
		case StateClosed, StateClosing:
			return nil
		case StateConnected, StateConnecting:
			s.setState(StateClosing)
			closeErr = s.peer.Close()
		}
		s.tools = nil
		s.setState(StateClosed)
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	if err != nil {
		return err
	}

	s.quitOnce.Do(func() { close(s.quit) })
	return closeErr
}
