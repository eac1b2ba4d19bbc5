package bolt

import (
	"context"
	"time"

	"go.etcd.io/bbolt"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

type pauseStore struct {
	db *bbolt.DB
}

func (s *pauseStore) Insert(ctx context.Context, pause storage.PausePeriod) error {
	return putBucketValue(ctx, s.db, bucketPauses, pauseKey(pause.Date, pause.ID), pause)
}

func (s *pauseStore) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.PausePeriod, error) {
	pauses := make([]storage.PausePeriod, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPauses))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		min := []byte(fromDate)
		max := []byte(toDate + "\xff")
		for k, v := c.Seek(min); k != nil && string(k) <= string(max); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var pause storage.PausePeriod
			if err := unmarshal(v, &pause); err != nil {
				return err
			}
			pauses = append(pauses, pause)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pauses, nil
}

func (s *pauseStore) DeleteBefore(ctx context.Context, cutoffDate string) (int, error) {
	cutoff, err := time.Parse(storage.DateFormat, cutoffDate)
	if err != nil {
		return 0, err
	}
	deleted := 0
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketPauses))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var pause storage.PausePeriod
			if err := unmarshal(v, &pause); err != nil {
				return err
			}
			dateValue, err := time.Parse(storage.DateFormat, pause.Date)
			if err != nil {
				continue
			}
			if dateValue.Before(cutoff) {
				if err := c.Delete(); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func pauseKey(date, id string) string {
	return date + "/" + id
}
