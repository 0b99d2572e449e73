package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/carebook/pkg/log"
	bolt "go.etcd.io/bbolt"
)

const savedAtKey = "saved_at"

var (
	// Bucket names
	bucketSession = []byte("session")
)

// BoltStore implements Store using BoltDB so a session survives process restarts
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) <dataDir>/carebook.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "carebook.db")

	// Another carebook process holding the lock should fail fast, not hang
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSession); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSession, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save overwrites both tokens in one transaction
func (s *BoltStore) Save(access, refresh string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put([]byte(AccessTokenKey), []byte(access)); err != nil {
			return err
		}
		if err := b.Put([]byte(RefreshTokenKey), []byte(refresh)); err != nil {
			return err
		}
		return b.Put([]byte(savedAtKey), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *BoltStore) Access() (string, bool) {
	return s.get(AccessTokenKey)
}

func (s *BoltStore) Refresh() (string, bool) {
	return s.get(RefreshTokenKey)
}

func (s *BoltStore) SetAccess(access string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put([]byte(AccessTokenKey), []byte(access)); err != nil {
			return err
		}
		return b.Put([]byte(savedAtKey), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	return nil
}

// Clear removes both tokens; clearing an empty store is not an error
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		for _, key := range []string{AccessTokenKey, RefreshTokenKey, savedAtKey} {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *BoltStore) SavedAt() (time.Time, bool) {
	raw, ok := s.get(savedAtKey)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *BoltStore) get(key string) (string, bool) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		// Values are only valid inside the transaction, copy out
		value = string(b.Get([]byte(key)))
		return nil
	})
	if err != nil {
		logger := log.WithComponent("session")
		logger.Warn().Err(err).Str("key", key).Msg("failed to read session")
		return "", false
	}
	return value, value != ""
}
