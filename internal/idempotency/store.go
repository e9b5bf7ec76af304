// Package idempotency remembers the responses of write requests that carried an
// Idempotency-Key header, so a retried request gets the original response instead
// of creating a duplicate.
//
// Records live in a BoltDB file, one bucket, keyed by "<scope>:<key>" where the scope
// is the authenticated user. Records older than the configured TTL are treated as
// absent and removed by Purge.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound is returned when no live record exists for a key.
	ErrNotFound = errors.New("idempotency key not found")

	// ErrKeyReused is returned when a key is replayed with a different request body.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)

// Record is the stored outcome of one request.
type Record struct {
	Fingerprint string          `json:"fingerprint"`
	Response    json.RawMessage `json:"response"`
	CreatedAt   int64           `json:"created_at"`
}

// Store wraps a BoltDB database holding idempotency records.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New opens (or creates) the database at path and ensures the bucket exists.
func New(path string, ttl time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open idempotency store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create idempotency bucket: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now, locks: make(map[string]*keyLock)}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(scope, key string) []byte {
	return []byte(scope + ":" + key)
}

func (s *Store) expired(r *Record) bool {
	return s.now().Sub(time.Unix(r.CreatedAt, 0)) > s.ttl
}

// Lock serializes requests sharing key within scope until the returned func is
// called. Holders should Lookup, do the work and Put before unlocking, so that a
// concurrent retry waits and then replays the stored response.
func (s *Store) Lock(scope, key string) (unlock func()) {
	k := string(recordKey(scope, key))

	s.mu.Lock()
	l, ok := s.locks[k]
	if !ok {
		l = &keyLock{}
		s.locks[k] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, k)
		}
		s.mu.Unlock()
	}
}

// Get returns the live record for key within scope, or ErrNotFound.
func (s *Store) Get(scope, key string) (*Record, error) {
	var r Record

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get(recordKey(scope, key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	if s.expired(&r) {
		return nil, ErrNotFound
	}
	return &r, nil
}

// Lookup returns the stored response for key if the request fingerprint matches.
// It returns ErrNotFound when there is nothing to replay and ErrKeyReused when the
// key belongs to a different request.
func (s *Store) Lookup(scope, key, fingerprint string) (json.RawMessage, error) {
	r, err := s.Get(scope, key)
	if err != nil {
		return nil, err
	}
	if r.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	return r.Response, nil
}

// Put stores the response for key ONLY if no live record exists yet.
//
// Returns (stored, true, nil) when the record was written and (existing, false, nil)
// when another request got there first. Callers should answer with the returned record.
func (s *Store) Put(scope, key, fingerprint string, response json.RawMessage) (*Record, bool, error) {
	var result Record
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := recordKey(scope, key)

		if existing := b.Get(k); existing != nil {
			if err := json.Unmarshal(existing, &result); err != nil {
				return err
			}
			if !s.expired(&result) {
				return nil
			}
		}

		result = Record{Fingerprint: fingerprint, Response: response, CreatedAt: s.now().Unix()}
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		created = true
		return b.Put(k, data)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to store idempotency record: %w", err)
	}

	return &result, created, nil
}

// Purge deletes expired records and returns how many were removed.
func (s *Store) Purge() (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil || s.expired(&r) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// deleting inside ForEach is not allowed
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency records: %w", err)
	}
	return removed, nil
}

// Fingerprint hashes the JSON encoding of a request.
func Fingerprint(req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
