package cache

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"
	"github.com/zeebo/errs"

	"RingsideSync/internal/ports"
)

// Error is the class of cache backend failures.
var Error = errs.Class("cache")

const (
	// fileMode sets permissions so owner can read and write
	fileMode = 0600

	headerSize = 8
)

var (
	bucketName  = []byte("ringside")
	openTimeout = time.Second
)

// BoltStore is a CacheStore backed by a single bolt file. Each value carries its
// expiry in an 8-byte header; expired entries read as absent and are evicted on read.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ ports.CacheStore = (*BoltStore)(nil)

// OpenBolt opens (or creates) the bolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, errs.Combine(Error.Wrap(err), db.Close())
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

// Put stores payload under key; a nil expiresAt never expires.
func (s *BoltStore) Put(_ context.Context, key string, payload []byte, expiresAt *time.Time) error {
	value := make([]byte, headerSize+len(payload))
	if expiresAt != nil {
		binary.BigEndian.PutUint64(value[:headerSize], uint64(expiresAt.UnixNano()))
	}
	copy(value[headerSize:], payload)

	return Error.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	}))
}

// Get returns the payload stored under key, evicting it when expired.
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var expired bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) < headerSize {
			return Error.New("corrupt entry %q", key)
		}
		if exp := int64(binary.BigEndian.Uint64(v[:headerSize])); exp != 0 && !s.now().Before(time.Unix(0, exp)) {
			expired = true
			return nil
		}
		payload = append([]byte{}, v[headerSize:]...)
		return nil
	})
	if err != nil {
		return nil, false, Error.Wrap(err)
	}

	if expired {
		return nil, false, s.evictExpired(key)
	}
	return payload, payload != nil, nil
}

// Delete removes key; missing keys are not an error.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	return Error.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	}))
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return Error.Wrap(s.db.Close())
}

// evictExpired re-checks the expiry inside the write transaction so a concurrent Put survives.
func (s *BoltStore) evictExpired(key string) error {
	return Error.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(key))
		if len(v) < headerSize {
			return nil
		}
		exp := int64(binary.BigEndian.Uint64(v[:headerSize]))
		if exp == 0 || s.now().Before(time.Unix(0, exp)) {
			return nil
		}
		return b.Delete([]byte(key))
	}))
}
