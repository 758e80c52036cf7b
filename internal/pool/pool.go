// internal/pool/pool.go

// Package pool accumulates records across scroll sessions and network
// observations, keyed by timestamp.
package pool

import (
	"sync"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// Pool is an append-only record store. A timestamp is stored at most once.
// The only write paths are AddBatch and an explicit Clear.
type Pool struct {
	mu      sync.RWMutex
	index   map[int64]struct{}
	records []record.Record
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{
		index: make(map[int64]struct{}),
	}
}

// AddBatch inserts every record whose timestamp is not yet present and
// returns how many were inserted. Duplicates inside the batch itself are
// collapsed to the first occurrence.
func (p *Pool) AddBatch(records []record.Record) int {
	if len(records) == 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	inserted := 0
	for _, r := range records {
		if _, seen := p.index[r.Timestamp]; seen {
			continue
		}
		p.index[r.Timestamp] = struct{}{}
		p.records = append(p.records, r)
		inserted++
	}
	return inserted
}

// Len returns the number of stored records.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Records returns a copy of the stored records in insertion order.
func (p *Pool) Records() []record.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]record.Record, len(p.records))
	copy(out, p.records)
	return out
}

// Contains reports whether a record with the given timestamp is stored.
func (p *Pool) Contains(timestamp int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.index[timestamp]
	return ok
}

// Clear drops every record. It is only called on explicit user request.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.index = make(map[int64]struct{})
	p.records = nil
}
