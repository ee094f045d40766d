package cli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/DEEJ4Y/callsched"
	"github.com/DEEJ4Y/callsched/mongodb"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

// execTimeout bounds a single exec handler run.
const execTimeout = 10 * time.Minute

// builtinHandlers returns the handlers a schedule file can name.
// mongo-sweep is only available when client is non-nil.
func builtinHandlers(log zerolog.Logger, client *mongo.Client) callsched.Handlers {
	h := callsched.Handlers{
		"log": func(args ...any) {
			log.Info().Interface("args", args).Msg("scheduled call")
		},
		"exec": func(name string, args ...string) error {
			ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
			defer cancel()

			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			log.Info().
				Str("command", strings.Join(append([]string{name}, args...), " ")).
				Str("output", strings.TrimSpace(string(out))).
				Msg("command finished")
			if err != nil {
				return fmt.Errorf("exec %s: %w", name, err)
			}
			return nil
		},
	}

	if client != nil {
		h["mongo-sweep"] = func(database, collection, field, retention string) error {
			d, err := time.ParseDuration(retention)
			if err != nil {
				return fmt.Errorf("mongo-sweep: retention: %w", err)
			}
			s, err := mongodb.NewSweeper(mongodb.Config{
				Collection: client.Database(database).Collection(collection),
				Field:      field,
				Retention:  d,
			})
			if err != nil {
				return fmt.Errorf("mongo-sweep: %w", err)
			}
			return s.Run()
		}
	}
	return h
}
