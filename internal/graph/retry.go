package graph

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Shakes-tzd/ijoka/internal/errs"
)

// withRetry wraps a single Gateway operation with exponential backoff.
// Retries on transient Memgraph/Bolt errors (deadlock, lease expired,
// connection reset); exhausting the budget yields a
// errs.StoreTransientError. A non-retryable error is classified and
// returned immediately — never retried.
func withRetry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.MaxInterval = 400 * time.Millisecond
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall time

	attempt := 0
	wrapped := backoff.WithMaxRetries(b, defaultMaxTransactionRetries)

	err := backoff.Retry(func() error {
		attempt++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		opErr := operation()
		if opErr == nil {
			return nil
		}

		if isClassified(opErr) {
			// operation already classified this error; don't double-wrap.
			if isRetryable(opErr) {
				return opErr
			}
			return backoff.Permanent(opErr)
		}

		if isRetryable(opErr) {
			return opErr
		}
		return backoff.Permanent(opErr)
	}, backoff.WithContext(wrapped, ctx))

	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if isRetryable(err) {
		return &errs.StoreTransientError{Op: "graph query", Cause: err}
	}
	return classify(err)
}

// classify maps a raw driver/connectivity error into one of the
// errs.RecoverableError kinds so callers never need to inspect driver
// internals (spec.md §7).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if isUnavailable(err) {
		return &errs.StoreUnavailableError{Cause: err}
	}
	if isRetryable(err) {
		return &errs.StoreTransientError{Op: "graph query", Cause: err}
	}
	return &errs.InternalError{Cause: err}
}

func isClassified(err error) bool {
	var transient *errs.StoreTransientError
	var unavailable *errs.StoreUnavailableError
	var internal *errs.InternalError
	return errors.As(err, &transient) || errors.As(err, &unavailable) || errors.As(err, &internal)
}

// isRetryable uses the driver's own typed classification first (belt), then
// string matching as a fallback for wrapped errors that lose the concrete
// type (suspenders) — the same two-layer approach the teacher uses for
// SQLite error codes in internal/store/retry.go.
func isRetryable(err error) bool {
	if neo4j.IsRetryable(err) {
		return true
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.Contains(neoErr.Code, "TransientError"):
			return true
		case strings.Contains(neoErr.Code, "Deadlock"):
			return true
		case strings.Contains(neoErr.Code, "ConstraintViolation"):
			return false
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "could not acquire lease"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"):
		return true
	}
	return false
}

func isUnavailable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no connection could be made") ||
		strings.Contains(msg, "failed to verify connectivity") ||
		strings.Contains(msg, "ServiceUnavailable") ||
		strings.Contains(msg, "Unable to connect")
}
