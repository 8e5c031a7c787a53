package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hndesk/hndesk/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketBookmarks = []byte("bookmarks")
	bucketMetadata  = []byte("meta")
	bucketImages    = []byte("images")
)

const bookmarksKey = "bookmarkedItems"

// cacheEnvelope wraps a cached payload with its storage time so the disk
// tier can enforce TTL without a separate timestamp key.
type cacheEnvelope struct {
	StoredAt int64  `json:"t"` // unix seconds
	Payload  []byte `json:"v"`
}

// Store persists bookmarks and the disk tier of both caches using BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens (or creates) the database under dir. An empty dir selects
// memory-only mode with no persistence.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "hndesk.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBookmarks, bucketMetadata, bucketImages} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *Store) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Bookmarks ===

func (s *Store) Bookmarks() ([]domain.Item, bool) {
	var items []domain.Item
	ok := s.get(bucketBookmarks, bookmarksKey, &items)
	return items, ok
}

func (s *Store) SaveBookmarks(items []domain.Item) error {
	return s.set(bucketBookmarks, bookmarksKey, items)
}

// === Cache tiers ===

// CacheTier exposes one bucket as the disk tier of a two-layer cache.
// Entries carry their storage time; TTL enforcement belongs to the cache.
type CacheTier struct {
	s      *Store
	bucket []byte
}

// MetadataTier returns the disk tier for page-metadata lookups.
func (s *Store) MetadataTier() *CacheTier { return &CacheTier{s: s, bucket: bucketMetadata} }

// ImageTier returns the disk tier for binary image data.
func (s *Store) ImageTier() *CacheTier { return &CacheTier{s: s, bucket: bucketImages} }

// Get returns the payload and storage time for key. The memory promotion
// map is bypassed here: the cache above has its own bounded memory tier.
func (t *CacheTier) Get(key string) ([]byte, time.Time, bool) {
	if t.s.db == nil {
		t.s.mu.RLock()
		data, ok := t.s.cache[string(t.bucket)+":"+key]
		t.s.mu.RUnlock()
		if !ok {
			return nil, time.Time{}, false
		}
		var env cacheEnvelope
		if json.Unmarshal(data, &env) != nil {
			return nil, time.Time{}, false
		}
		return env.Payload, time.Unix(env.StoredAt, 0), true
	}

	var data []byte
	t.s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, time.Time{}, false
	}

	var env cacheEnvelope
	if json.Unmarshal(data, &env) != nil {
		return nil, time.Time{}, false
	}
	return env.Payload, time.Unix(env.StoredAt, 0), true
}

// Put stores payload under key with the given storage time, overwriting any
// previous entry.
func (t *CacheTier) Put(key string, payload []byte, storedAt time.Time) error {
	env := cacheEnvelope{StoredAt: storedAt.Unix(), Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if t.s.db == nil {
		t.s.mu.Lock()
		t.s.cache[string(t.bucket)+":"+key] = data
		t.s.mu.Unlock()
		return nil
	}

	return t.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		return b.Put([]byte(key), data)
	})
}

// Delete removes the entry for key.
func (t *CacheTier) Delete(key string) {
	t.s.delete(t.bucket, key)
}

// Sweep deletes every entry stored before cutoff and returns the number
// removed.
func (t *CacheTier) Sweep(cutoff time.Time) int {
	if t.s.db == nil {
		t.s.mu.Lock()
		defer t.s.mu.Unlock()
		removed := 0
		prefix := string(t.bucket) + ":"
		for k, data := range t.s.cache {
			if len(k) < len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			var env cacheEnvelope
			if json.Unmarshal(data, &env) != nil || env.StoredAt < cutoff.Unix() {
				delete(t.s.cache, k)
				removed++
			}
		}
		return removed
	}

	removed := 0
	t.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env cacheEnvelope
			if json.Unmarshal(v, &env) != nil || env.StoredAt < cutoff.Unix() {
				if err := b.Delete(k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed
}

// HashKey derives a short stable key from an arbitrary URL, safe for use
// as a bucket key.
func HashKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}
