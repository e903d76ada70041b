package commands

import "hash/fnv"

// deterministicEventID derives a stable int64 Event.id from a hook call's
// natural dedupe key, so re-delivery of the same hook payload is a no-op
// (invariant I9). Grounded on the original implementation's
// f"{session_id}-{hook_type}"-style event_id composition in
// session-start.py/session-end.py, re-expressed as an FNV-1a hash since the
// store's Event.id is int64, not a string.
func deterministicEventID(parts ...string) int64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return int64(h.Sum64() &^ (1 << 63)) // keep it positive; id is opaque either way
}
