package sink

import (
	"fmt"
	"iter"
	"sync"
)

// TB is the subset of testing.TB used by the assertion helpers, so
// that importing this package does not pull in the testing package.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Records is the append-only ordered store of decoded log records.
// While the service runs it is appended to exclusively by the reactor;
// test code may read, clear or replace its contents between
// assertions. Reads during an active run may observe a growing store
// mid-update, so deterministic assertions belong after Stop.
type Records struct {
	mu      sync.Mutex
	entries []Record
}

// append adds a record. Called only by the reactor goroutine.
func (r *Records) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, rec)
}

// All returns a copy of the stored records in arrival order.
func (r *Records) All() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of stored records.
func (r *Records) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes all stored records.
func (r *Records) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Replace swaps the store contents, letting tests stage or prune
// records directly between assertions.
func (r *Records) Replace(entries []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]Record, len(entries))
	copy(r.entries, entries)
}

// Filter returns a lazy, restartable sequence of the records whose
// severity is at or above threshold, preserving store order. Each
// range over the sequence iterates a fresh snapshot of the store.
// Records with a missing or unrecognized "level" field rank below
// every threshold and are never yielded.
func (r *Records) Filter(threshold Level) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, rec := range r.All() {
			lvl, ok := rec.Level()
			if !ok || lvl < threshold {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// CheckHasAtLeast returns an error unless at least one stored record
// has severity at or above threshold.
func (r *Records) CheckHasAtLeast(threshold Level) error {
	for range r.Filter(threshold) {
		return nil
	}
	return fmt.Errorf("no records of level %s or above were received", threshold)
}

// CheckNoneAtLeast returns an error if any stored record has severity
// at or above threshold, naming the first offending record.
func (r *Records) CheckNoneAtLeast(threshold Level) error {
	for rec := range r.Filter(threshold) {
		lvl, _ := rec.Level()
		return fmt.Errorf("a record of level %s was received (threshold %s), message: %q",
			lvl, threshold, rec.Message())
	}
	return nil
}

// AssertHasAtLeast fails the test unless at least one stored record
// has severity at or above threshold.
func (r *Records) AssertHasAtLeast(t TB, threshold Level) {
	t.Helper()
	if err := r.CheckHasAtLeast(threshold); err != nil {
		t.Fatalf("%v", err)
	}
}

// AssertNoneAtLeast fails the test if any stored record has severity
// at or above threshold.
func (r *Records) AssertNoneAtLeast(t TB, threshold Level) {
	t.Helper()
	if err := r.CheckNoneAtLeast(threshold); err != nil {
		t.Fatalf("%v", err)
	}
}

// Stats returns record counts keyed by canonical level name. Records
// without a recognizable level are counted under "UNKNOWN".
func (r *Records) Stats() map[string]int {
	stats := make(map[string]int)
	for _, rec := range r.All() {
		lvl, ok := rec.Level()
		if !ok {
			stats["UNKNOWN"]++
			continue
		}
		stats[lvl.String()]++
	}
	return stats
}
