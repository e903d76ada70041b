package store

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// EnsureProject idempotently upserts a Project by its canonical git-root
// path (spec.md §4.3 ensure_project). Adapters resolve the path; the core
// only MERGEs it.
func EnsureProject(ctx context.Context, g graph.Gateway, path, name string) (*models.Project, error) {
	if path == "" {
		return nil, &errs.ValidationError{Field: "path", Reason: "must not be empty"}
	}
	now := formatTime(time.Now())

	recs, err := g.WriteQuery(ctx, `
		MERGE (p:Project {path: $path})
		ON CREATE SET p.id = $id, p.name = $name, p.created_at = $now, p.updated_at = $now
		ON MATCH SET p.updated_at = $now
		RETURN p.id AS id, p.path AS path, p.name AS name, p.description AS description,
		       p.created_at AS created_at, p.updated_at AS updated_at
	`, map[string]any{
		"path": path,
		"id":   models.NewID("proj"),
		"name": name,
		"now":  now,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.InternalError{Cause: context.Canceled}
	}
	return scanProject(recs[0])
}

// GetProject fetches a Project by id.
func GetProject(ctx context.Context, g graph.Gateway, id string) (*models.Project, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (p:Project {id: $id})
		RETURN p.id AS id, p.path AS path, p.name AS name, p.description AS description,
		       p.created_at AS created_at, p.updated_at AS updated_at
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Project", ID: id}
	}
	return scanProject(recs[0])
}

// GetProjectByPath fetches a Project by its canonical path.
func GetProjectByPath(ctx context.Context, g graph.Gateway, path string) (*models.Project, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (p:Project {path: $path})
		RETURN p.id AS id, p.path AS path, p.name AS name, p.description AS description,
		       p.created_at AS created_at, p.updated_at AS updated_at
	`, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Project", ID: path}
	}
	return scanProject(recs[0])
}

func scanProject(rec graph.Record) (*models.Project, error) {
	createdAt, err := getTime(rec, "created_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	updatedAt, err := getTime(rec, "updated_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	return &models.Project{
		ID:          getString(rec, "id"),
		Path:        getString(rec, "path"),
		Name:        getString(rec, "name"),
		Description: getString(rec, "description"),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
