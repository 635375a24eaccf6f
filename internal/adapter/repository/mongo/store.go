// Package mongo implements the Local Store (C3) over go.mongodb.org/
// mongo-driver, the one domain dependency not sourced from the teacher's
// own go.mod (see DESIGN.md) but mandated by the spec's own MONGO_URI/
// DATABASE_NAME environment contract.
package mongo

import (
	"context"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ port.LocalStore = (*Store)(nil)

const (
	collStudents        = "students"
	collMissingStudents = "missing_students"
	collCounters        = "counters"
	collCaptureLogs     = "fingerprint_sessions"

	connectTimeout = 10 * time.Second
)

// Store is the mongo-driver-backed port.LocalStore implementation.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	students *mongo.Collection
	missing  *mongo.Collection
	counters *mongo.Collection
	captures *mongo.Collection
}

// Connect dials the local document store, per the spec's MONGO_URI/
// DATABASE_NAME environment contract (spec.md §6).
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &StoreError{Op: "ping", Err: err}
	}

	db := client.Database(database)
	return &Store{
		client:   client,
		db:       db,
		students: db.Collection(collStudents),
		missing:  db.Collection(collMissingStudents),
		counters: db.Collection(collCounters),
		captures: db.Collection(collCaptureLogs),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
