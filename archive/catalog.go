package archive

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoRuns is returned by Catalog.Latest for names without runs.
	ErrNoRuns = errors.New("archive: no runs recorded")
	// ErrConflict is returned when another writer recorded the same version.
	ErrConflict = errors.New("archive: concurrent catalog update")
)

// Entry is one catalog record. Versions start at 1 and grow by one for each
// run pushed under the same name.
type Entry struct {
	Name      string
	Version   uint64
	RunID     string
	CreatedAt time.Time
}

// Catalog tracks which runs were archived under a log name.
type Catalog interface {
	// Record appends runID as the next version of name.
	Record(ctx context.Context, name, runID string) (Entry, error)
	// Latest returns the newest entry for name.
	Latest(ctx context.Context, name string) (Entry, error)
}

// MemoryCatalog is an in-process Catalog.
type MemoryCatalog struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{entries: make(map[string][]Entry)}
}

// Record implements Catalog.
func (c *MemoryCatalog) Record(_ context.Context, name, runID string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{
		Name:      name,
		Version:   uint64(len(c.entries[name])) + 1,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
	c.entries[name] = append(c.entries[name], e)
	return e, nil
}

// Latest implements Catalog.
func (c *MemoryCatalog) Latest(_ context.Context, name string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runs := c.entries[name]
	if len(runs) == 0 {
		return Entry{}, ErrNoRuns
	}
	return runs[len(runs)-1], nil
}

// History returns all entries for name, oldest first.
func (c *MemoryCatalog) History(name string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries[name]...)
}
