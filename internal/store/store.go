// Package store is the embedded database behind the scrobbler: a bbolt
// environment holding the per-title progress map, the pending sync queue
// and the login credential. All mutations are transactional; bbolt allows
// a single writer at a time, so a long-running sync session blocks local
// updates until it ends.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shurizzle/aniscrobble/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketMeta     = []byte("meta")
	bucketProgress = []byte("progress")
)

// Keys in the meta bucket
var (
	keyVersion = []byte("version")
	keyLogin   = []byte("login")
	keyPending = []byte("pending")
)

// schemaVersion tags the on-disk layout. A database carrying a different
// tag is rejected at open time; there is no migration path.
const schemaVersion uint64 = 1

// Store wraps the bbolt environment.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database under dir, creates the meta bucket
// and verifies the schema tag. The progress bucket is not created here; it
// appears lazily on the first recorded observation.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "data.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if v := meta.Get(keyVersion); v != nil {
			if len(v) != 8 || binary.BigEndian.Uint64(v) != schemaVersion {
				return domain.ErrVersionMismatch
			}
			return nil
		}
		return meta.Put(keyVersion, itob(schemaVersion))
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// progressBucket returns the progress sub-bucket, creating it on first use
// when tx is writable. bbolt's single-writer lock makes the one-time
// creation race-free; read transactions see nil until it exists, which
// callers treat as an empty map.
func progressBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	if b := tx.Bucket(bucketProgress); b != nil {
		return b, nil
	}
	if !tx.Writable() {
		return nil, nil
	}
	b, err := tx.CreateBucket(bucketProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress bucket: %w", err)
	}
	return b, nil
}

// === Local update path ===

// Record stores a locally observed episode count for a title and queues it
// for the next sync. Observations that do not advance the stored count are
// ignored, so duplicate or stale reports are harmless. The queue insert and
// the progress write commit atomically; once Record returns nil the
// observation survives a crash and will be visited by the next sync.
func (s *Store) Record(id, episode uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		progress, err := progressBucket(tx)
		if err != nil {
			return err
		}

		var current uint64
		if v := progress.Get(itob(id)); v != nil {
			current = btoi(v)
		}
		if episode <= current {
			return nil
		}

		meta := tx.Bucket(bucketMeta)
		queue, err := decodePending(meta.Get(keyPending))
		if err != nil {
			return err
		}
		if i, found := slices.BinarySearch(queue, id); !found {
			queue = slices.Insert(queue, i, id)
			if err := putPending(meta, queue); err != nil {
				return err
			}
		}

		return progress.Put(itob(id), itob(episode))
	})
}

// === Read accessors ===

// Progress returns the locally recorded episode count for a title and
// whether one exists.
func (s *Store) Progress(id uint64) (uint64, bool, error) {
	var (
		episode uint64
		ok      bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		progress, _ := progressBucket(tx)
		if progress == nil {
			return nil
		}
		if v := progress.Get(itob(id)); v != nil {
			episode = btoi(v)
			ok = true
		}
		return nil
	})
	return episode, ok, err
}

// Pending returns the ids currently awaiting reconciliation, in ascending
// order.
func (s *Store) Pending() ([]uint64, error) {
	var queue []uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		queue, err = decodePending(tx.Bucket(bucketMeta).Get(keyPending))
		return err
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

// === Credential ===

// Login returns the stored credential, or nil when logged out.
func (s *Store) Login() (*domain.Account, error) {
	var acct *domain.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyLogin)
		if v == nil {
			return nil
		}
		acct = new(domain.Account)
		if err := json.Unmarshal(v, acct); err != nil {
			return fmt.Errorf("corrupt login record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Store) SetLogin(acct *domain.Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to encode login record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyLogin, data)
	})
}

func (s *Store) DeleteLogin() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete(keyLogin)
	})
}

// === Encoding helpers ===

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func decodePending(v []byte) ([]uint64, error) {
	if v == nil {
		return nil, nil
	}
	var queue []uint64
	if err := json.Unmarshal(v, &queue); err != nil {
		return nil, fmt.Errorf("corrupt pending queue: %w", err)
	}
	return queue, nil
}

func putPending(meta *bolt.Bucket, queue []uint64) error {
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to encode pending queue: %w", err)
	}
	return meta.Put(keyPending, data)
}
