package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ui-iids/dremio-mcp-client/internal/bridge"
	"github.com/ui-iids/dremio-mcp-client/internal/catalog"
	"github.com/ui-iids/dremio-mcp-client/internal/history"
	"github.com/ui-iids/dremio-mcp-client/internal/provider"
)

// fakeBackend is a scriptable in-memory catalog.Backend.
type fakeBackend struct {
	mu sync.Mutex

	roots    []catalog.RawEntry
	entities map[string]catalog.RawEntry
	children map[string][]catalog.RawEntry

	// jobStates holds the sequence of states returned by successive Job
	// calls for a given id; the last entry repeats once exhausted.
	jobStates map[string][]catalog.JobState
	jobPolls  map[string]int

	submitted []string
	submitErr error
	results   map[string]catalog.ResultPage
}

func (f *fakeBackend) Roots(context.Context) ([]catalog.RawEntry, error) {
	return f.roots, nil
}

func (f *fakeBackend) Entity(_ context.Context, id string) (catalog.RawEntry, error) {
	ent, ok := f.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return ent, nil
}

func (f *fakeBackend) Children(_ context.Context, id string) ([]catalog.RawEntry, error) {
	return f.children[id], nil
}

func (f *fakeBackend) SubmitSQL(_ context.Context, sql string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, sql)
	return "job-1", nil
}

func (f *fakeBackend) Job(_ context.Context, id string) (catalog.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := f.jobStates[id]
	if len(states) == 0 {
		return catalog.Job{}, fmt.Errorf("no job %s", id)
	}
	if f.jobPolls == nil {
		f.jobPolls = make(map[string]int)
	}
	idx := f.jobPolls[id]
	f.jobPolls[id]++
	if idx >= len(states) {
		idx = len(states) - 1
	}
	return catalog.Job{ID: id, State: states[idx]}, nil
}

func (f *fakeBackend) JobResults(_ context.Context, id string, _, _ int) (catalog.ResultPage, error) {
	return f.results[id], nil
}

func (f *fakeBackend) CreateEntity(_ context.Context, body catalog.RawEntry) (catalog.RawEntry, error) {
	return body, nil
}

func (f *fakeBackend) UpdateEntity(_ context.Context, _, _ string, body catalog.RawEntry) (catalog.RawEntry, error) {
	return body, nil
}

func (f *fakeBackend) lastSubmitted(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		t.Fatal("no SQL submitted")
	}
	return f.submitted[len(f.submitted)-1]
}

// fakeLLM is a scripted provider returning canned completions in order.
type fakeLLM struct {
	mu        sync.Mutex
	responses []provider.CompletionResponse
	err       error
	calls     int
}

func (p *fakeLLM) Complete(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return provider.CompletionResponse{}, p.err
	}
	if p.calls >= len(p.responses) {
		return provider.CompletionResponse{}, fmt.Errorf("unexpected completion call %d", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *fakeLLM) ModelName() string { return "fake-model" }

// fakePeer is a minimal scriptable bridge.Peer.
type fakePeer struct {
	tools      []bridge.Tool
	connectErr error
	results    map[string]bridge.Result
}

func (p *fakePeer) Connect(context.Context) error { return p.connectErr }

func (p *fakePeer) ListTools(context.Context) ([]bridge.Tool, error) {
	return p.tools, nil
}

func (p *fakePeer) CallTool(_ context.Context, name string, _ map[string]any) (bridge.Result, error) {
	res, ok := p.results[name]
	if !ok {
		return bridge.Result{}, fmt.Errorf("no such tool %s", name)
	}
	return res, nil
}

func (p *fakePeer) Close() error { return nil }

// fakeSessions hands out one shared connected session.
type fakeSessions struct {
	session *bridge.Session
	err     error
}

func (s *fakeSessions) Session(context.Context) (*bridge.Session, error) {
	return s.session, s.err
}

// memStore is an in-memory history.Store.
type memStore struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (s *memStore) Append(_ context.Context, rec history.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	rec.ID = int64(len(s.records) + 1)
	rec.CreatedAt = time.Now().UTC()
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *memStore) Recent(_ context.Context, limit int) ([]history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]history.Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// connectedSession builds a Session over a fakePeer and connects it.
func connectedSession(t *testing.T, peer *fakePeer) *bridge.Session {
	t.Helper()
	sess := bridge.NewSession(peer, nil, bridge.Config{})
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

// newTestGateway builds a Gateway with fakes wired directly, bypassing the
// module lifecycle, and returns it with its router.
func newTestGateway(t *testing.T, mutate func(g *Gateway)) (*Gateway, http.Handler) {
	t.Helper()

	g := &Gateway{}
	g.config.defaults()
	g.config.Query.PollInterval = time.Millisecond
	g.config.Query.Timeout = time.Second
	g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	g.metrics = &Metrics{}
	g.prom = newCollectors()
	g.startedAt = time.Now()

	if mutate != nil {
		mutate(g)
	}
	if g.backend != nil {
		g.resolver = catalog.NewResolver(g.backend, g.logger)
		g.runner = catalog.NewRunner(g.backend, g.logger)
		g.writer = catalog.NewWriter(g.backend, g.logger)
	}

	return g, g.buildRouter()
}
