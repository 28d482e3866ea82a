package corpus

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/clawguard/clawguard/internal/scanner"
)

var reportsBucket = []byte("reports")

// Cache memoizes scan reports by bundle content hash so re-running a
// corpus sweep only rescans content that actually changed.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (or creates) the cache database.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("open corpus cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init corpus cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetReport returns the cached report for a content hash, if any.
func (c *Cache) GetReport(contentHash string) (scanner.Report, bool) {
	var report scanner.Report
	found := false
	_ = c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(reportsBucket).Get([]byte(contentHash))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &report); err != nil {
			return nil // stale or corrupt entry reads as a miss
		}
		found = true
		return nil
	})
	return report, found
}

// PutReport stores a report under its content hash.
func (c *Cache) PutReport(contentHash string, report scanner.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cached report: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reportsBucket).Put([]byte(contentHash), data)
	})
}
