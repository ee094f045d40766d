package mongodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DEEJ4Y/callsched"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoURI = "mongodb://localhost:27017"

// lazyCollection returns a collection handle without touching the server;
// the driver only dials on the first operation.
func lazyCollection(t *testing.T) *mongo.Collection {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })
	return client.Database("sweeper_unit").Collection("docs")
}

func TestNewSweeper(t *testing.T) {
	t.Run("requires collection", func(t *testing.T) {
		if _, err := NewSweeper(Config{Retention: time.Hour}); err == nil {
			t.Error("expected error when collection is nil")
		}
	})

	t.Run("requires positive retention", func(t *testing.T) {
		if _, err := NewSweeper(Config{Collection: lazyCollection(t)}); err == nil {
			t.Error("expected error when retention is zero")
		}
	})

	t.Run("sets defaults", func(t *testing.T) {
		s, err := NewSweeper(Config{Collection: lazyCollection(t), Retention: time.Hour})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.field != "createdAt" {
			t.Errorf("expected default field createdAt, got %q", s.field)
		}
		if s.timeout != time.Minute {
			t.Errorf("expected default timeout of 1 minute, got %v", s.timeout)
		}
	})
}

func TestSweeper_Filter(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)

	t.Run("expiry only", func(t *testing.T) {
		s, _ := NewSweeper(Config{Collection: lazyCollection(t), Field: "seenAt", Retention: 24 * time.Hour})
		filter := s.Filter(now)
		cond, ok := filter["seenAt"].(bson.M)
		if !ok {
			t.Fatalf("unexpected filter %v", filter)
		}
		if got := cond["$lt"]; got != cutoff {
			t.Errorf("cutoff = %v, want %v", got, cutoff)
		}
	})

	t.Run("with condition", func(t *testing.T) {
		s, _ := NewSweeper(Config{
			Collection: lazyCollection(t),
			Retention:  24 * time.Hour,
			Condition:  bson.M{"type": "session"},
		})
		and, ok := s.Filter(now)["$and"].([]bson.M)
		if !ok || len(and) != 2 {
			t.Fatalf("unexpected filter %v", s.Filter(now))
		}
		if and[1]["type"] != "session" {
			t.Errorf("condition not applied: %v", and[1])
		}
	})
}

func TestSweeper_Spec(t *testing.T) {
	s, err := NewSweeper(Config{Collection: lazyCollection(t), Retention: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched := callsched.New(callsched.Config{})
	defer sched.Close()

	job, err := sched.Schedule(s.Spec(3*time.Hour, callsched.Day))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Self() != s || job.Interval() != callsched.Day {
		t.Error("spec did not bind the sweeper")
	}
	if removed := sched.Cancel(callsched.MatchHandler((*Sweeper).Run)); len(removed) != 1 {
		t.Errorf("expected to cancel the sweep job, got %d", len(removed))
	}
}

// TestSweeper_Live runs a sweep against a local MongoDB.
func TestSweeper_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Skipf("Skipping test: MongoDB not available: %v", err)
	}
	defer client.Disconnect(ctx)

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		t.Skipf("Skipping test: Cannot ping MongoDB: %v", err)
	}

	// Use a unique database for this test
	db := client.Database(fmt.Sprintf("sweeper_test_%d", time.Now().UnixNano()))
	defer db.Drop(context.Background())
	collection := db.Collection("docs")

	now := time.Now()
	docs := []interface{}{
		bson.M{"name": "old", "createdAt": now.Add(-48 * time.Hour)},
		bson.M{"name": "old-kept-type", "createdAt": now.Add(-48 * time.Hour), "type": "audit"},
		bson.M{"name": "fresh", "createdAt": now},
	}
	if _, err := collection.InsertMany(ctx, docs); err != nil {
		t.Fatalf("Failed to insert documents: %v", err)
	}

	s, err := NewSweeper(Config{
		Collection: collection,
		Retention:  24 * time.Hour,
		Condition:  bson.M{"type": bson.M{"$ne": "audit"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted document, got %d", deleted)
	}

	remaining, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if remaining != 2 {
		t.Errorf("expected 2 remaining documents, got %d", remaining)
	}
}
