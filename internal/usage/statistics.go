// Package usage persists lightweight request counters in a bolt database.
// Recording is best effort: a failed write is logged and forgotten, it
// never affects request handling.
package usage

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var requestBucket = []byte("requests")

// TotalKey accumulates requests across all models.
const TotalKey = "total"

// Statistics counts chat requests per model in a bolt file.
type Statistics struct {
	mu   sync.Mutex
	path string
}

// NewStatistics creates a statistics recorder backed by the given file.
// An empty path disables recording.
func NewStatistics(path string) *Statistics {
	return &Statistics{path: path}
}

// RecordRequest increments the counter for model and the total counter.
func (s *Statistics) RecordRequest(model string) {
	if s.path == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.increment(model); err != nil {
		log.Warnf("usage: failed to record request for %q: %v", model, err)
	}
}

func (s *Statistics) increment(model string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	return db.Update(func(tx *bolt.Tx) error {
		b, errBucket := tx.CreateBucketIfNotExists(requestBucket)
		if errBucket != nil {
			return errBucket
		}
		for _, key := range []string{model, TotalKey} {
			count, _ := strconv.ParseUint(string(b.Get([]byte(key))), 10, 64)
			if errPut := b.Put([]byte(key), []byte(strconv.FormatUint(count+1, 10))); errPut != nil {
				return errPut
			}
		}
		return nil
	})
}

// Snapshot returns every counter keyed by model name.
func (s *Statistics) Snapshot() (map[string]uint64, error) {
	out := map[string]uint64{}
	if s.path == "" {
		return out, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return out, nil
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(requestBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			count, errParse := strconv.ParseUint(string(v), 10, 64)
			if errParse != nil {
				// Skip malformed entries instead of failing the whole read.
				return nil
			}
			out[string(k)] = count
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
