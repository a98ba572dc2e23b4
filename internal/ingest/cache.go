package ingest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
)

// Cache memoizes the last ingest result, keyed by a fingerprint of the
// input file set. Rebuilding the table is always safe; the cache only
// avoids re-parsing when the file set has not changed.
type Cache struct {
	mu      sync.Mutex
	key     string
	table   *Table
	reports []Report
}

// Fingerprint hashes the ordered file set (names and contents).
func Fingerprint(files []File) string {
	h := sha256.New()
	var n [8]byte
	for _, f := range files {
		binary.BigEndian.PutUint64(n[:], uint64(len(f.Name)))
		h.Write(n[:])
		h.Write([]byte(f.Name))
		binary.BigEndian.PutUint64(n[:], uint64(len(f.Data)))
		h.Write(n[:])
		h.Write(f.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Ingest returns the memoized result when the file set is unchanged,
// otherwise parses and remembers.
func (c *Cache) Ingest(files []File, schema Schema) (*Table, []Report) {
	key := Fingerprint(files)

	c.mu.Lock()
	if c.table != nil && c.key == key {
		t, r := c.table, c.reports
		c.mu.Unlock()
		return t, r
	}
	c.mu.Unlock()

	table, reports := Ingest(files, schema)

	c.mu.Lock()
	c.key, c.table, c.reports = key, table, reports
	c.mu.Unlock()
	return table, reports
}

// Invalidate drops the memoized result. Call after changing the schema.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.key, c.table, c.reports = "", nil, nil
	c.mu.Unlock()
}
