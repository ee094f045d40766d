package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DEEJ4Y/callsched"
	"github.com/DEEJ4Y/callsched/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newRunCmd() *cobra.Command {
	var (
		flagFile     string
		flagWatch    bool
		flagMongoURI string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the jobs in a schedule file until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var client *mongo.Client
			if flagMongoURI != "" {
				c, err := mongo.Connect(ctx, options.Client().ApplyURI(flagMongoURI))
				if err != nil {
					return fmt.Errorf("connect to MongoDB: %w", err)
				}
				defer c.Disconnect(context.Background())
				client = c
			}

			f, err := config.Load(flagFile)
			if err != nil {
				return fmt.Errorf("load schedule: %w", err)
			}

			// The one Scheduler for this process.
			sched := callsched.New(callsched.Config{
				Logger: logger,
				OnError: func(ctx context.Context, job *callsched.Job, err error) {
					logger.Warn().Err(err).Str("job_id", job.ID()).Msg("job failed")
				},
			})
			defer sched.Close()

			handlers := builtinHandlers(logger, client)
			r := &runner{sched: sched, handlers: handlers, log: logger}
			if err := r.apply(f); err != nil {
				return err
			}

			if flagWatch {
				go func() {
					err := config.Watch(ctx, flagFile, logger, func(f *config.File) {
						if err := r.apply(f); err != nil {
							logger.Warn().Err(err).Msg("schedule rejected; keeping previous jobs")
						}
					})
					if err != nil {
						logger.Error().Err(err).Msg("schedule watch stopped")
					}
				}()
			}

			<-ctx.Done()
			logger.Info().Int("jobs", sched.Len()).Msg("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagFile, "file", "f", "schedule.yaml", "Schedule file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "Reload the schedule file when it changes")
	cmd.Flags().StringVar(&flagMongoURI, "mongo-uri", os.Getenv("MONGO_URI"), "MongoDB URI enabling the mongo-sweep handler (or MONGO_URI env)")

	return cmd
}

// runner applies schedule files to a Scheduler.
type runner struct {
	sched    *callsched.Scheduler
	handlers callsched.Handlers
	log      zerolog.Logger
}

// apply replaces every scheduled job with the jobs in f. Nothing changes if
// any entry is invalid.
func (r *runner) apply(f *config.File) error {
	specs := make([]callsched.Spec, len(f.Jobs))
	for i, e := range f.Jobs {
		spec, err := e.Spec(r.handlers)
		if err != nil {
			return err
		}
		if err := callsched.Validate(spec); err != nil {
			return fmt.Errorf("job %q: %w", e.Name, err)
		}
		specs[i] = spec
	}

	canceled := r.sched.Cancel(callsched.All)
	for i, spec := range specs {
		job, err := r.sched.Schedule(spec)
		if err != nil {
			// Only ErrClosed gets here; the specs were validated above.
			return fmt.Errorf("job %q: %w", f.Jobs[i].Name, err)
		}
		r.log.Info().
			Str("job", f.Jobs[i].Name).
			Str("job_id", job.ID()).
			Str("next_fire_at", job.NextFireAt().Format(time.RFC3339)).
			Dur("interval", job.Interval()).
			Msg("job scheduled")
	}
	r.log.Info().Int("canceled", len(canceled)).Int("scheduled", len(specs)).Msg("schedule applied")
	return nil
}
