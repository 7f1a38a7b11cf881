package startgg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sonic "github.com/bytedance/sonic"
)

// Cache stores raw provider responses keyed by request identity. Get returns
// the payload with its write time so callers can apply their own staleness
// policy.
type Cache interface {
	Get(key string) ([]byte, time.Time, bool)
	Put(key string, payload []byte) error
}

// CacheKey derives a stable key from a GraphQL document and its variables.
// Variables are serialized with sorted keys so equivalent maps collide.
func CacheKey(query string, variables map[string]any) string {
	canonical, err := sonic.ConfigStd.Marshal(variables)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%v", variables))
	}
	sum := sha256.Sum256(append([]byte(query), canonical...))
	return hex.EncodeToString(sum[:])
}

// DiskCache keeps one JSON file per key. Overwriting a key first renames the
// previous snapshot with a timestamp suffix, so older pulls stay inspectable.
type DiskCache struct {
	dir string
	now func() time.Time
}

func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir, now: time.Now}, nil
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *DiskCache) Get(key string) ([]byte, time.Time, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	return raw, info.ModTime(), true
}

func (c *DiskCache) Put(key string, payload []byte) error {
	path := c.path(key)
	if _, err := os.Stat(path); err == nil {
		archived := filepath.Join(c.dir, fmt.Sprintf("%s.%d.json", key, c.now().Unix()))
		if err := os.Rename(path, archived); err != nil {
			return fmt.Errorf("archive cache entry: %w", err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
