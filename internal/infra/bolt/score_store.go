// Package bolt persists per-category high scores in a local BoltDB file
// so the best score survives client restarts.
package bolt

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const scoresBucket = "highscores"

// ScoreStore is a durable key-value store of the best score per category
// slug. Scores are monotonically non-decreasing: writes below the stored
// value are ignored.
type ScoreStore struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the score database at path.
func Open(path string) (*ScoreStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("score store path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open score db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scoresBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure score bucket: %w", err)
	}
	return &ScoreStore{db: db}, nil
}

func (s *ScoreStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HighScore returns the stored best score for the category, 0 if unset.
func (s *ScoreStore) HighScore(category string) (int, error) {
	var score int
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(scoresBucket)).Get([]byte(category))
		if raw != nil {
			score = int(binary.BigEndian.Uint64(raw))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read high score: %w", err)
	}
	return score, nil
}

// MaybePersist stores score as the category's new best if it beats the
// stored value, reporting whether a write happened.
func (s *ScoreStore) MaybePersist(category string, score int) (bool, error) {
	improved := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scoresBucket))
		stored := 0
		if raw := bucket.Get([]byte(category)); raw != nil {
			stored = int(binary.BigEndian.Uint64(raw))
		}
		if score <= stored {
			return nil
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(score))
		improved = true
		return bucket.Put([]byte(category), buf[:])
	})
	if err != nil {
		return false, fmt.Errorf("persist high score: %w", err)
	}
	return improved, nil
}
