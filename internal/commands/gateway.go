package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/app"
	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/output"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// printedError wraps an already-logged, already-printed error so Execute
// doesn't double-report it, while still carrying spec.md §6's exit code
// (0 success, 1 user error, 2 store error).
type printedError struct {
	err  error
	code int
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) exitCode() int { return e.code }

// classifyExitCode maps a core error to spec.md §6's CLI exit codes via the
// same RecoverableError taxonomy the HTTP adapter maps to status codes.
func classifyExitCode(err error) int {
	var storeTransient *errs.StoreTransientError
	var storeUnavailable *errs.StoreUnavailableError
	if errs.As(err, &storeTransient) || errs.As(err, &storeUnavailable) {
		return 2
	}
	return 1
}

// openGateway resolves the effective Graph Store Gateway configuration and
// opens a connection, mirroring the teacher's openDB lookup/close pattern
// re-targeted from *sql.DB to graph.Gateway.
func openGateway(ctx context.Context) (graph.Gateway, func(), error) {
	cfg, err := app.GetGraphConfig()
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.NewGateway(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return g, func() { _ = g.Close(ctx) }, nil
}

// withGateway opens the Graph Store Gateway, ensures its schema, and hands
// it to fn; errors are normalized through cmdErr so command RunE bodies stay
// one-liners.
func withGateway(ctx context.Context, fn func(g graph.Gateway) error) error {
	g, closeGateway, err := openGateway(ctx)
	if err != nil {
		return cmdErr(err)
	}
	defer closeGateway()

	if err := graph.EnsureSchema(ctx, g); err != nil {
		return cmdErr(err)
	}
	if err := fn(g); err != nil {
		return cmdErr(err)
	}
	return nil
}

// withProject additionally resolves (creating if absent) the Project for
// the current working directory's git root, the unit every other core
// call is scoped to (spec.md §4.3).
func withProject(ctx context.Context, fn func(g graph.Gateway, project *models.Project) error) error {
	return withGateway(ctx, func(g graph.Gateway) error {
		path, err := projectRoot()
		if err != nil {
			return err
		}
		project, err := store.EnsureProject(ctx, g, path, filepathBase(path))
		if err != nil {
			return err
		}
		return fn(g, project)
	})
}

func filepathBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// projectRoot canonicalises the current directory to its git root (spec.md
// §4.3); falling back to the raw working directory outside a git repo.
func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for d := dir; ; {
		if _, statErr := os.Stat(d + "/.git"); statErr == nil {
			return d, nil
		}
		parent := parentDir(d)
		if parent == d {
			return dir, nil
		}
		d = parent
	}
}

func parentDir(d string) string {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] == '/' {
			if i == 0 {
				return "/"
			}
			return d[:i]
		}
	}
	return d
}

// staleThreshold resolves the effective Claim Arbiter staleness window.
func staleThreshold() time.Duration {
	return time.Duration(app.EffectiveStaleThreshold()) * time.Minute
}

// envOrEmpty reads an environment variable, returning "" if unset.
func envOrEmpty(key string) string {
	return os.Getenv(key)
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	type slogAttrError interface {
		SlogAttrs() []any
	}
	var detailed slogAttrError
	if errors.As(err, &detailed) {
		attrs = append(attrs, detailed.SlogAttrs()...)
	}
	slog.Error("command error", attrs...)
	return printedError{err: err, code: classifyExitCode(err)}
}

// printResult serialises a successful command result as spec.md §6's JSON
// envelope. The CLI is agent-consumed first (same rationale as internal/output's
// compact-by-default Print), so there is no separate human-readable renderer:
// --json is accepted for forward compatibility but is currently a no-op.
func printResult(cmd *cobra.Command, data any) error {
	return output.PrintSuccess(data)
}

// printError writes a command's error through the same JSON envelope before
// the error is returned up to Execute for exit-code mapping.
func printError(err error) error {
	_ = output.PrintError(err)
	return cmdErr(err)
}
