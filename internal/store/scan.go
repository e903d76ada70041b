// Package store implements Cypher-based CRUD and hierarchy/claim operations
// over the domain graph (spec.md §3–§4.4), translating the teacher's
// SQL-based internal/store package into statements against an
// internal/graph.Gateway.
package store

import (
	"fmt"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// timeLayout is the wire/storage format for all timestamps: UTC ISO-8601,
// per spec.md §4.2.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func getString(rec graph.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getStringPtr(rec graph.Record, key string) *string {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func getBool(rec graph.Record, key string) bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getInt(rec graph.Record, key string) int {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func getStringSlice(rec graph.Record, key string) []string {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getTime(rec graph.Record, key string) (time.Time, error) {
	s := getString(rec, key)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp field %q", key)
	}
	return time.Parse(timeLayout, s)
}

func getTimePtr(rec graph.Record, key string) (*time.Time, error) {
	s := getStringPtr(rec, key)
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
