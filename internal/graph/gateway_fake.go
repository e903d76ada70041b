package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler answers one Cypher statement given its bound parameters.
type Handler func(params map[string]any) ([]Record, error)

// FakeGateway is an in-process Gateway for tests, grounded on the teacher's
// use of an in-memory SQLite handle (":memory:") for its store tests: where
// the teacher gets a real in-memory engine for free from modernc.org/sqlite,
// a Bolt graph store has no equivalent in-process mode, so tests instead
// register a Handler per statement shape and assert on recorded calls — the
// same "fake the seam, not the protocol" approach the teacher's tests use
// for internal/actions against a stubbed store.
type FakeGateway struct {
	mu       sync.Mutex
	handlers []stubbedHandler
	Calls    []Call

	// txMu serializes WriteTx callbacks, standing in for the backing store's
	// serializable write-transaction isolation so a test can exercise two
	// interleaved WriteTx callers and see one complete before the other
	// starts, rather than their individual statements interleaving.
	txMu sync.Mutex
}

type stubbedHandler struct {
	match   string
	handler Handler
}

// Call records one ReadQuery/WriteQuery/WriteTx invocation for assertions.
type Call struct {
	Cypher string
	Params map[string]any
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

// Stub registers handler for any Cypher statement containing match as a
// substring. Later registrations take precedence over earlier ones.
func (f *FakeGateway) Stub(match string, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, stubbedHandler{match: match, handler: handler})
}

func (f *FakeGateway) dispatch(cypher string, params map[string]any) ([]Record, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{Cypher: cypher, Params: params})
	handlers := append([]stubbedHandler(nil), f.handlers...)
	f.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		if strings.Contains(cypher, handlers[i].match) {
			return handlers[i].handler(params)
		}
	}
	return nil, fmt.Errorf("fake graph gateway: no stub registered matching query: %s", cypher)
}

func (f *FakeGateway) ReadQuery(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return f.dispatch(cypher, params)
}

func (f *FakeGateway) WriteQuery(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return f.dispatch(cypher, params)
}

func (f *FakeGateway) WriteTx(ctx context.Context, fn func(tx Tx) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(fakeTx{gw: f, ctx: ctx})
}

func (f *FakeGateway) Close(_ context.Context) error { return nil }

type fakeTx struct {
	gw  *FakeGateway
	ctx context.Context
}

func (t fakeTx) Run(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return t.gw.dispatch(cypher, params)
}

var _ Gateway = (*FakeGateway)(nil)
