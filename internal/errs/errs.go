// Package errs implements the error taxonomy of spec.md §7: every kind is a
// RecoverableError (models.RecoverableError) so the HTTP and CLI adapters can
// map it to a status code / exit code without string-sniffing.
package errs

import (
	"errors"
	"fmt"

	"github.com/Shakes-tzd/ijoka/internal/models"
)

// ValidationError: input fails enum/range/shape checks; user-visible.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}
func (e *ValidationError) ErrorCode() string { return "VALIDATION_ERROR" }
func (e *ValidationError) Context() map[string]string {
	return map[string]string{"field": e.Field, "reason": e.Reason}
}
func (e *ValidationError) SuggestedAction() string {
	return "fix the request payload and retry"
}

// NotFoundError: referenced entity does not exist; user-visible.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
func (e *NotFoundError) ErrorCode() string { return "NOT_FOUND" }
func (e *NotFoundError) Context() map[string]string {
	return map[string]string{"entity": e.Entity, "id": e.ID}
}
func (e *NotFoundError) SuggestedAction() string {
	return "verify the id and that it belongs to the current project"
}

// ClaimConflictError: active, non-self claim exists and override was not
// requested (spec.md §4.5 step 4).
type ClaimConflictError struct {
	FeatureID      string
	CurrentSession string
	CurrentAgent   string
	RequestedAgent string
	RequestedByID  string
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("feature %q already claimed by agent %q (session %q)", e.FeatureID, e.CurrentAgent, e.CurrentSession)
}
func (e *ClaimConflictError) ErrorCode() string { return "CLAIM_CONFLICT" }
func (e *ClaimConflictError) Context() map[string]string {
	return map[string]string{
		"feature_id":      e.FeatureID,
		"current_session": e.CurrentSession,
		"current_agent":   e.CurrentAgent,
		"requested_agent": e.RequestedAgent,
		"requested_by":    e.RequestedByID,
	}
}
func (e *ClaimConflictError) SuggestedAction() string {
	return "retry with force_override=true once the holder is confirmed stale, or pick another feature"
}

// CycleError: a CHILD_OF link would create a cycle (invariant I4).
type CycleError struct {
	ChildID  string
	ParentID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("linking %q under %q would create a cycle", e.ChildID, e.ParentID)
}
func (e *CycleError) ErrorCode() string { return "CYCLE_ERROR" }
func (e *CycleError) Context() map[string]string {
	return map[string]string{"child_id": e.ChildID, "parent_id": e.ParentID}
}
func (e *CycleError) SuggestedAction() string {
	return "choose a parent that is not a descendant of the child"
}

// StoreTransientError: retriable store error exhausted its retry budget.
type StoreTransientError struct {
	Op    string
	Cause error
}

func (e *StoreTransientError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Cause)
}
func (e *StoreTransientError) Unwrap() error     { return e.Cause }
func (e *StoreTransientError) ErrorCode() string { return "STORE_TRANSIENT" }
func (e *StoreTransientError) Context() map[string]string {
	return map[string]string{"operation": e.Op}
}
func (e *StoreTransientError) SuggestedAction() string {
	return "retry the request; if it persists, check graph store health"
}

// StoreUnavailableError: store unreachable; surfaced immediately.
type StoreUnavailableError struct {
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable: %v", e.Cause)
}
func (e *StoreUnavailableError) Unwrap() error     { return e.Cause }
func (e *StoreUnavailableError) ErrorCode() string { return "STORE_UNAVAILABLE" }
func (e *StoreUnavailableError) Context() map[string]string {
	return map[string]string{}
}
func (e *StoreUnavailableError) SuggestedAction() string {
	return "check graph store connectivity (IJOKA_GRAPH_URI) and retry"
}

// InternalError: anything unexpected; logged with stack, opaque to caller.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string     { return "internal error" }
func (e *InternalError) Unwrap() error     { return e.Cause }
func (e *InternalError) ErrorCode() string { return "INTERNAL" }
func (e *InternalError) Context() map[string]string {
	return map[string]string{}
}
func (e *InternalError) SuggestedAction() string {
	return "retry; if it persists, this is a bug"
}

var (
	_ models.RecoverableError = (*ValidationError)(nil)
	_ models.RecoverableError = (*NotFoundError)(nil)
	_ models.RecoverableError = (*ClaimConflictError)(nil)
	_ models.RecoverableError = (*CycleError)(nil)
	_ models.RecoverableError = (*StoreTransientError)(nil)
	_ models.RecoverableError = (*StoreUnavailableError)(nil)
	_ models.RecoverableError = (*InternalError)(nil)
)

// As is a thin errors.As wrapper kept here so callers don't need to import
// both errs and errors just to classify one of these kinds.
func As[T error](err error, target *T) bool {
	return errors.As(err, target)
}
