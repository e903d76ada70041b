package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/claim"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/httpapi"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// NewServeCmd wires `ijoka serve`: the long-running HTTP Adapter process
// (spec.md §4.12/§6), plus an optional background staleness-sweep
// scheduled with github.com/robfig/cron/v3 — named in SPEC_FULL.md's
// DOMAIN STACK table as the one component with a legitimate recurring-job
// need (claim.SweepStale releases abandoned in_progress Features the way
// StartFeature's lazy check would eventually, but proactively so
// analytics/digest reflects reality without waiting on the next claim
// attempt).
func NewServeCmd() *cobra.Command {
	var addr string
	var sweepInterval time.Duration
	var disableSweep bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP Adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, closeGateway, err := openGateway(ctx)
			if err != nil {
				return cmdErr(err)
			}
			defer closeGateway()
			if err := graph.EnsureSchema(ctx, g); err != nil {
				return cmdErr(err)
			}

			path, err := projectRoot()
			if err != nil {
				return cmdErr(err)
			}
			project, err := store.EnsureProject(ctx, g, path, filepathBase(path))
			if err != nil {
				return cmdErr(err)
			}

			log := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
			handler := httpapi.NewServer(g, project, staleThreshold(), log)

			var sched *cron.Cron
			if !disableSweep {
				sched = cron.New()
				_, err := sched.AddFunc(everyDuration(sweepInterval), func() {
					sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					released, err := claim.SweepStale(sweepCtx, g, project.ID, staleThreshold())
					if err != nil {
						log.Error().Err(err).Msg("stale_sweep_failed")
						return
					}
					if released > 0 {
						log.Info().Int("released", released).Msg("stale_sweep")
					}
				})
				if err != nil {
					return cmdErr(err)
				}
				sched.Start()
				defer sched.Stop()
			}

			log.Info().Str("addr", addr).Msg("serving")
			srv := &http.Server{Addr: addr, Handler: handler}
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "HTTP listen address")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", 5*time.Minute, "stale-claim sweep interval")
	cmd.Flags().BoolVar(&disableSweep, "no-sweep", false, "disable the background stale-claim sweep")
	return cmd
}

// everyDuration renders a time.Duration as the "@every" cron spec
// github.com/robfig/cron/v3 understands, so the sweep interval stays a
// plain --flag instead of a 5-field cron expression.
func everyDuration(d time.Duration) string {
	return "@every " + d.String()
}
