package store

import (
	"context"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// RecordCommit upserts a Commit by its unique hash, linking it from the
// making Session and to the Features it implements (spec.md §3).
func RecordCommit(ctx context.Context, g graph.Gateway, sessionID string, c *models.Commit, featureIDs []string) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $sessionID})
		MERGE (c:Commit {hash: $hash})
		ON CREATE SET c.message = $message, c.author = $author, c.timestamp = $timestamp
		MERGE (s)-[:MADE_COMMITS]->(c)
		WITH c
		UNWIND $featureIDs AS fid
		MATCH (f:Feature {id: fid})
		MERGE (c)-[:IMPLEMENTED_IN]->(f)
	`, map[string]any{
		"sessionID":  sessionID,
		"hash":       c.Hash,
		"message":    c.Message,
		"author":     c.Author,
		"timestamp":  formatTime(c.Timestamp),
		"featureIDs": toAnySlice(featureIDs),
	})
	return err
}

// ListSessionCommits returns commits made by a Session, newest first.
func ListSessionCommits(ctx context.Context, g graph.Gateway, sessionID string) ([]*models.Commit, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (s:Session {id: $sessionID})-[:MADE_COMMITS]->(c:Commit)
		RETURN c.hash AS hash, c.message AS message, c.author AS author, c.timestamp AS timestamp
		ORDER BY c.timestamp DESC
	`, map[string]any{"sessionID": sessionID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Commit, 0, len(recs))
	for _, rec := range recs {
		ts, err := getTime(rec, "timestamp")
		if err != nil {
			return nil, &errs.InternalError{Cause: err}
		}
		out = append(out, &models.Commit{
			Hash:      getString(rec, "hash"),
			Message:   getString(rec, "message"),
			Author:    getString(rec, "author"),
			Timestamp: ts,
		})
	}
	return out, nil
}
