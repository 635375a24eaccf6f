package mongo

import (
	"context"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertMissingStudent(ctx context.Context, m *student.MissingStudent) error {
	_, err := s.missing.InsertOne(ctx, m)
	if err != nil {
		return &StoreError{Op: "insert_missing_student", Err: err}
	}
	return nil
}

func (s *Store) FindMissingStudentByUID(ctx context.Context, uid int) (*student.MissingStudent, error) {
	var m student.MissingStudent
	err := s.missing.FindOne(ctx, bson.M{"uid": uid}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find_missing_student_by_uid", Err: err}
	}
	return &m, nil
}

func (s *Store) SaveMissingStudent(ctx context.Context, m *student.MissingStudent) error {
	_, err := s.missing.ReplaceOne(ctx, bson.M{"uid": m.UID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return &StoreError{Op: "save_missing_student", Err: err}
	}
	return nil
}

func (s *Store) DeleteMissingStudent(ctx context.Context, uid int) error {
	_, err := s.missing.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return &StoreError{Op: "delete_missing_student", Err: err}
	}
	return nil
}

func (s *Store) ListMissingStudents(ctx context.Context) ([]*student.MissingStudent, error) {
	cur, err := s.missing.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_offline_at", Value: 1}}))
	if err != nil {
		return nil, &StoreError{Op: "list_missing_students", Err: err}
	}
	defer cur.Close(ctx)

	var out []*student.MissingStudent
	if err := cur.All(ctx, &out); err != nil {
		return nil, &StoreError{Op: "list_missing_students", Err: err}
	}
	return out, nil
}
