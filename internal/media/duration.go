package media

import (
	"os"
	"sync"
	"time"
)

type durationEntry struct {
	seconds float64
	modTime time.Time
	size    int64
}

// DurationCache remembers probed durations of output files. An entry is
// stale once the file's size or modification time changes, since merged
// output is rewritten in place on every merge.
type DurationCache struct {
	mu      sync.RWMutex
	entries map[string]durationEntry
}

// NewDurationCache creates an empty cache.
func NewDurationCache() *DurationCache {
	return &DurationCache{entries: make(map[string]durationEntry)}
}

// Get returns the cached duration if the file is unchanged since Set.
func (c *DurationCache) Get(path string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != e.size || !info.ModTime().Equal(e.modTime) {
		c.Remove(path)
		return 0, false
	}
	return e.seconds, true
}

// Set records the duration of path together with its current stat.
func (c *DurationCache) Set(path string, seconds float64) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[path] = durationEntry{seconds: seconds, modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()
}

// Remove drops the entry for path.
func (c *DurationCache) Remove(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Size returns the number of cached entries.
func (c *DurationCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
