package services

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func historyEntry(studentID string) *HistoryEntry {
	return &HistoryEntry{StudentID: studentID, Timestamp: time.Now().UTC()}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewSubmissionHistory(3)
	for _, id := range []string{"A", "B", "C", "D"} {
		h.Append(historyEntry(id))
	}
	got := h.Recent(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"D", "C", "B"}
	for i, e := range got {
		if e.StudentID != want[i] {
			t.Fatalf("recent[%d] = %s, want %s", i, e.StudentID, want[i])
		}
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	h := NewSubmissionHistory(10)
	for i := 0; i < 5; i++ {
		h.Append(historyEntry(fmt.Sprintf("S%d", i)))
	}
	if got := h.Recent(2); len(got) != 2 || got[0].StudentID != "S4" {
		t.Fatalf("unexpected recent(2): %+v", got)
	}
	if got := h.Recent(0); len(got) != 5 {
		t.Fatalf("recent(0) should return all retained, got %d", len(got))
	}
	if got := h.Recent(99); len(got) != 5 {
		t.Fatalf("recent beyond length should clamp, got %d", len(got))
	}
}

func TestHistoryConcurrentAppends(t *testing.T) {
	h := NewSubmissionHistory(64)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Append(historyEntry(fmt.Sprintf("W%d-%d", w, i)))
				_ = h.Recent(10)
			}
		}(w)
	}
	wg.Wait()
	if h.Len() != 64 {
		t.Fatalf("len = %d, want capacity 64", h.Len())
	}
	for _, e := range h.Recent(0) {
		if e == nil {
			t.Fatalf("torn entry observed")
		}
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewSubmissionHistory(0)
	if h.Capacity() != DefaultHistoryLimit {
		t.Fatalf("capacity = %d, want %d", h.Capacity(), DefaultHistoryLimit)
	}
}
