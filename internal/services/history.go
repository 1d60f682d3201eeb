package services

import "sync"

const DefaultHistoryLimit = 50

// SubmissionHistory is a fixed-capacity, concurrency-safe record of
// recent analyzed submissions for dashboard display. Strict FIFO: once
// capacity is reached the oldest entry is evicted. Deliberately
// in-memory and ephemeral; nothing here survives a restart.
type SubmissionHistory struct {
	mu       sync.RWMutex
	capacity int
	entries  []*HistoryEntry
}

func NewSubmissionHistory(capacity int) *SubmissionHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &SubmissionHistory{capacity: capacity}
}

func (h *SubmissionHistory) Append(e *HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Recent returns up to limit entries, most recent first. limit <= 0
// returns everything retained. Readers get a snapshot as of some append
// boundary; entries themselves are treated as immutable.
func (h *SubmissionHistory) Recent(limit int) []*HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

func (h *SubmissionHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *SubmissionHistory) Capacity() int { return h.capacity }
