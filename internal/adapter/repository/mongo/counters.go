package mongo

import (
	"context"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) FindCounter(ctx context.Context, name string) (*counter.Counter, error) {
	var c counter.Counter
	err := s.counters.FindOne(ctx, bson.M{"name": name}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find_counter", Err: err}
	}
	return &c, nil
}

func (s *Store) SaveCounter(ctx context.Context, c *counter.Counter) error {
	_, err := s.counters.ReplaceOne(ctx, bson.M{"name": c.Name}, c, options.Replace().SetUpsert(true))
	if err != nil {
		return &StoreError{Op: "save_counter", Err: err}
	}
	return nil
}
