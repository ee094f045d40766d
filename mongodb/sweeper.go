// Package mongodb provides a MongoDB retention sweeper that can be run on a
// callsched schedule.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/DEEJ4Y/callsched"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Config holds the configuration for a Sweeper.
type Config struct {
	// Collection is the MongoDB collection to sweep.
	// Required.
	Collection *mongo.Collection

	// Field holds the timestamp documents expire by.
	// Default: "createdAt"
	Field string

	// Retention is how long documents are kept. Documents whose Field is
	// older than now minus Retention are deleted.
	// Required.
	Retention time.Duration

	// Condition is an optional additional filter to apply when deleting.
	// Example: bson.M{"type": "session"} to sweep only sessions.
	Condition bson.M

	// Timeout bounds one sweep when run from a schedule.
	// Default: 1 minute
	Timeout time.Duration
}

// Sweeper deletes expired documents from a collection.
type Sweeper struct {
	collection *mongo.Collection
	field      string
	retention  time.Duration
	condition  bson.M
	timeout    time.Duration
	now        func() time.Time
}

// NewSweeper creates a new Sweeper with the given configuration.
func NewSweeper(config Config) (*Sweeper, error) {
	if config.Collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	if config.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %v", config.Retention)
	}

	// Set defaults
	if config.Field == "" {
		config.Field = "createdAt"
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}

	return &Sweeper{
		collection: config.Collection,
		field:      config.Field,
		retention:  config.Retention,
		condition:  config.Condition,
		timeout:    config.Timeout,
		now:        time.Now,
	}, nil
}

// Filter returns the delete filter for a sweep at now.
func (s *Sweeper) Filter(now time.Time) bson.M {
	expired := bson.M{s.field: bson.M{"$lt": now.Add(-s.retention)}}
	if s.condition == nil {
		return expired
	}
	return bson.M{"$and": []bson.M{expired, s.condition}}
}

// Sweep deletes expired documents and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, s.Filter(s.now()))
	if err != nil {
		return 0, fmt.Errorf("deleteMany failed: %w", err)
	}
	return result.DeletedCount, nil
}

// Run performs one sweep bounded by the configured timeout. It is the
// handler Spec schedules.
func (s *Sweeper) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.Sweep(ctx)
	return err
}

// Spec returns a callsched spec that runs the sweeper at offset after
// midnight and then every interval.
func (s *Sweeper) Spec(offset, interval time.Duration) callsched.Spec {
	return callsched.Spec{
		Handler:     (*Sweeper).Run,
		Self:        s,
		DailyOffset: offset,
		Interval:    interval,
	}
}
