package mongo

import (
	"context"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/capturelog"
)

func (s *Store) InsertCaptureLog(ctx context.Context, c *capturelog.CaptureLog) error {
	_, err := s.captures.InsertOne(ctx, c)
	if err != nil {
		return &StoreError{Op: "insert_capture_log", Err: err}
	}
	return nil
}
