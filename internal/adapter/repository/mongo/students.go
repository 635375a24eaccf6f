package mongo

import (
	"context"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertStudent(ctx context.Context, st *student.Student) error {
	_, err := s.students.InsertOne(ctx, st)
	if err != nil {
		return &StoreError{Op: "insert_student", Err: err}
	}
	return nil
}

func (s *Store) FindStudentByUID(ctx context.Context, uid int) (*student.Student, error) {
	var st student.Student
	err := s.students.FindOne(ctx, bson.M{"uid": uid}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find_student_by_uid", Err: err}
	}
	return &st, nil
}

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	_, err := s.students.ReplaceOne(ctx, bson.M{"uid": st.UID}, st, options.Replace().SetUpsert(true))
	if err != nil {
		return &StoreError{Op: "save_student", Err: err}
	}
	return nil
}

func (s *Store) DeleteStudent(ctx context.Context, uid int) error {
	_, err := s.students.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return &StoreError{Op: "delete_student", Err: err}
	}
	return nil
}

// ListStudents returns students newest-first by insertion time (spec.md §6).
func (s *Store) ListStudents(ctx context.Context, skip, limit int) ([]*student.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.students.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &StoreError{Op: "list_students", Err: err}
	}
	defer cur.Close(ctx)

	var out []*student.Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, &StoreError{Op: "list_students", Err: err}
	}
	return out, nil
}

// IterateStudentsWithOfflineAttendance finds students carrying at least one
// unsynced offline attendance entry, matched via an elemMatch-style scan
// over the attendance map's values (spec.md §4.10).
func (s *Store) IterateStudentsWithOfflineAttendance(ctx context.Context) ([]*student.Student, error) {
	filter := bson.M{
		"$expr": bson.M{
			"$gt": bson.A{
				bson.M{"$size": bson.M{
					"$filter": bson.M{
						"input": bson.M{"$objectToArray": "$attendance"},
						"cond": bson.M{"$and": bson.A{
							bson.M{"$ne": bson.A{"$$this.v.offline", nil}},
							bson.M{"$eq": bson.A{"$$this.v.offline.synced", false}},
						}},
					},
				}},
				0,
			},
		},
	}

	cur, err := s.students.Find(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "iterate_offline_attendance", Err: err}
	}
	defer cur.Close(ctx)

	var out []*student.Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, &StoreError{Op: "iterate_offline_attendance", Err: err}
	}
	return out, nil
}
