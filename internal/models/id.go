package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID creates a prefixed, globally unique string ID in the format
// "{prefix}_{uuid}", e.g. "feat_0b3f...". Mirrors the teacher's
// "{prefix}_{timestamp}_{random}" convention, swapped for a uuid body
// since Project/Feature/Step/Insight IDs here have no need for
// the teacher's monotonic-ish timestamp ordering (graph Cypher queries
// order by created_at, not by ID).
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
