package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/output"
)

// writeJSON mirrors output.PrintSuccess/PrintError but targets an
// http.ResponseWriter instead of stdout, keeping the same Response
// envelope shape the CLI adapter uses (spec.md §4.12: adapters never
// diverge in how they surface core results).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, output.Success(data))
}

// respondError maps an errs.* RecoverableError to the status codes of
// spec.md §6: 400 validation/ClaimConflict/cycle, 404 unknown id, 503 store
// unavailable or store transient, 500 otherwise.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *errs.ValidationError
	var claimErr *errs.ClaimConflictError
	var cycleErr *errs.CycleError
	var notFoundErr *errs.NotFoundError
	var unavailableErr *errs.StoreUnavailableError
	var transientErr *errs.StoreTransientError

	switch {
	case errs.As(err, &validationErr), errs.As(err, &claimErr), errs.As(err, &cycleErr):
		status = http.StatusBadRequest
	case errs.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errs.As(err, &unavailableErr):
		status = http.StatusServiceUnavailable
	case errs.As(err, &transientErr):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, output.Error(err))
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return &errs.ValidationError{Field: "body", Reason: "request body is required"}
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &errs.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
