// Package graph implements the Graph Store Gateway (spec.md §4.1): a single
// bounded connection to the opencypher-compatible backing store (Memgraph,
// reachable over Bolt) through which every other package reads and writes.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Shakes-tzd/ijoka/internal/app"
)

const (
	defaultMaxPoolSize           = 10
	defaultAcquisitionTimeout    = 30 * time.Second
	defaultConnectTimeout        = 5 * time.Second
	defaultMaxTransactionRetries = 3
)

// Record is a single row of a Cypher query result, keyed by the `AS` alias
// or variable name bound in the RETURN clause.
type Record map[string]any

// Gateway is the seam every other package depends on instead of importing
// the neo4j driver directly, mirroring the teacher's *sql.DB dependency
// boundary in internal/store. A FakeGateway (gateway_fake.go) implements the
// same interface in-process for tests.
type Gateway interface {
	// ReadQuery runs a read-only Cypher statement and returns all result rows.
	ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]Record, error)

	// WriteQuery runs a write Cypher statement in its own managed
	// transaction and returns all result rows.
	WriteQuery(ctx context.Context, cypher string, params map[string]any) ([]Record, error)

	// WriteTx runs fn inside a single managed write transaction, so callers
	// needing multiple statements to commit atomically (e.g. the Claim
	// Arbiter's claim triple, spec.md §4.5) can compose them.
	WriteTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying driver and its connection pool.
	Close(ctx context.Context) error
}

// Tx is the subset of neo4j.ManagedTransaction exposed to WriteTx callbacks.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}

type gateway struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGateway opens a driver against cfg and verifies connectivity. Callers
// should hold one Gateway per process, matching the teacher's single shared
// *sql.DB.
func NewGateway(ctx context.Context, cfg app.GraphConfig) (Gateway, error) {
	auth := neo4j.NoAuth()
	if cfg.User != "" {
		auth = neo4j.BasicAuth(cfg.User, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = defaultMaxPoolSize
		c.ConnectionAcquisitionTimeout = defaultAcquisitionTimeout
		c.SocketConnectTimeout = defaultConnectTimeout
		c.MaxTransactionRetryTime = defaultAcquisitionTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("open graph driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &gateway{driver: driver, database: cfg.Database}, nil
}

func (g *gateway) ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	var records []Record
	err := withRetry(ctx, func() error {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database, AccessMode: neo4j.AccessModeRead})
		defer session.Close(ctx)

		result, txErr := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return collectRecords(ctx, tx, cypher, params)
		})
		if txErr != nil {
			return classify(txErr)
		}
		records = result.([]Record)
		return nil
	})
	return records, err
}

func (g *gateway) WriteQuery(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	var records []Record
	err := withRetry(ctx, func() error {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database, AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)

		result, txErr := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return collectRecords(ctx, tx, cypher, params)
		})
		if txErr != nil {
			return classify(txErr)
		}
		records = result.([]Record)
		return nil
	})
	return records, err
}

func (g *gateway) WriteTx(ctx context.Context, fn func(tx Tx) error) error {
	return withRetry(ctx, func() error {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database, AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)

		_, txErr := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
			return nil, fn(managedTx{ctx: ctx, mtx: mtx})
		})
		if txErr != nil {
			return classify(txErr)
		}
		return nil
	})
}

func (g *gateway) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

type managedTx struct {
	ctx context.Context
	mtx neo4j.ManagedTransaction
}

func (m managedTx) Run(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return collectRecords(m.ctx, m.mtx, cypher, params)
}

func collectRecords(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) ([]Record, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var out []Record
	for result.Next(ctx) {
		rec := result.Record()
		row := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			row[key] = v
		}
		out = append(out, row)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
