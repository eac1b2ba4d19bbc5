package bolt

import (
	"context"
	"time"

	"go.etcd.io/bbolt"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

type sessionStore struct {
	db *bbolt.DB
}

func (s *sessionStore) Upsert(ctx context.Context, session storage.Session) error {
	return putBucketValue(ctx, s.db, bucketSessions, sessionKey(session.Date, session.ID), session)
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	var found *storage.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return storage.ErrNotFound
		}
		return b.ForEach(func(_, v []byte) error {
			var session storage.Session
			if err := unmarshal(v, &session); err != nil {
				return err
			}
			if session.ID == id {
				found = &session
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

func (s *sessionStore) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.Session, error) {
	sessions := make([]storage.Session, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		// Keys are date-prefixed, so a range scan covers the window.
		min := []byte(fromDate)
		max := []byte(toDate + "\xff")
		for k, v := c.Seek(min); k != nil && string(k) <= string(max); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var session storage.Session
			if err := unmarshal(v, &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionStore) ListOpen(ctx context.Context) ([]storage.Session, error) {
	sessions := make([]storage.Session, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var session storage.Session
			if err := unmarshal(v, &session); err != nil {
				return err
			}
			if session.Active {
				sessions = append(sessions, session)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionStore) DeleteClosedBefore(ctx context.Context, cutoffDate string) (int, error) {
	cutoff, err := time.Parse(storage.DateFormat, cutoffDate)
	if err != nil {
		return 0, err
	}
	deleted := 0
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var session storage.Session
			if err := unmarshal(v, &session); err != nil {
				return err
			}
			dateValue, err := time.Parse(storage.DateFormat, session.Date)
			if err != nil {
				continue
			}
			if !session.Active && dateValue.Before(cutoff) {
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

func sessionKey(date, id string) string {
	return date + "/" + id
}
