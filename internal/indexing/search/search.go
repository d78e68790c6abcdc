// Package search maintains normalized full-text indices over registry records
// and filters them by substring containment.
package search

import (
	"strings"
	"sync"

	"github.com/vietddude/cemetery/internal/indexing/metrics"
)

// separator joins indexed fields so a query cannot match across a field boundary.
const separator = "\x00"

// Build modes reported to metrics.
const (
	modeReuse = "reuse"
	modeDelta = "delta"
	modeFull  = "full"
)

// Normalize lowercases and trims s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FieldSet defines which fields of T are searchable on one surface.
type FieldSet[T any] struct {
	// Surface names the index in metrics and logs.
	Surface string
	// Key returns the record identity.
	Key func(T) string
	// Fields returns the raw searchable values.
	Fields func(T) []string
}

// Entry renders the normalized search text of a record.
func (fs FieldSet[T]) Entry(record T) string {
	fields := fs.Fields(record)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := Normalize(f); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, separator)
}

type fingerprint struct {
	count int
	first string
	last  string
}

// Indexer maps record identity to normalized search text for one surface.
// The index is rebuilt only when the fingerprint of the input changes; an
// append that preserves the previous boundary indexes the new tail only.
type Indexer[T any] struct {
	fields FieldSet[T]

	mu      sync.Mutex
	entries map[string]string
	fp      fingerprint
	built   bool
	// source is the stamp of the data the index was built from; 0 is unknown.
	source uint64
}

// NewIndexer creates an indexer for the given field set.
func NewIndexer[T any](fields FieldSet[T]) *Indexer[T] {
	return &Indexer[T]{
		fields:  fields,
		entries: make(map[string]string),
	}
}

// Surface returns the field set name.
func (ix *Indexer[T]) Surface() string {
	return ix.fields.Surface
}

// Build brings the index up to date with records and returns a snapshot of it.
func (ix *Indexer[T]) Build(records []T) map[string]string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.refresh(records)

	out := make(map[string]string, len(ix.entries))
	for k, v := range ix.entries {
		out[k] = v
	}
	return out
}

// Filter returns the records whose entry contains the normalized query, in
// input order. An empty query returns records unchanged.
func (ix *Indexer[T]) Filter(records []T, query string) []T {
	q := Normalize(query)
	if q == "" {
		return records
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.filterLocked(records, q)
}

// FilterSource is Filter for records read from a stamped source such as a
// cache entry. When source differs from the stamp the index was built from,
// the index is dropped first: a reload can change record content while
// keeping the fingerprint.
func (ix *Indexer[T]) FilterSource(records []T, source uint64, query string) []T {
	q := Normalize(query)
	if q == "" {
		return records
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if source != ix.source {
		ix.resetLocked()
		ix.source = source
	}
	return ix.filterLocked(records, q)
}

func (ix *Indexer[T]) filterLocked(records []T, q string) []T {
	ix.refresh(records)

	out := make([]T, 0, len(records))
	for _, r := range records {
		key := ix.fields.Key(r)
		entry, ok := ix.entries[key]
		if !ok {
			entry = ix.fields.Entry(r)
			ix.entries[key] = entry
		}
		if strings.Contains(entry, q) {
			out = append(out, r)
		}
	}
	return out
}

// Reset drops the index so the next Build is a full rebuild. Callers reset
// after a mutation may have changed records without changing the fingerprint.
func (ix *Indexer[T]) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.resetLocked()
	ix.source = 0
}

func (ix *Indexer[T]) resetLocked() {
	ix.entries = make(map[string]string)
	ix.fp = fingerprint{}
	ix.built = false
}

// Len returns the number of indexed records.
func (ix *Indexer[T]) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

func (ix *Indexer[T]) fingerprintOf(records []T) fingerprint {
	fp := fingerprint{count: len(records)}
	if len(records) > 0 {
		fp.first = ix.fields.Key(records[0])
		fp.last = ix.fields.Key(records[len(records)-1])
	}
	return fp
}

func (ix *Indexer[T]) refresh(records []T) {
	fp := ix.fingerprintOf(records)
	if ix.built && fp == ix.fp {
		metrics.IndexBuildsTotal.WithLabelValues(ix.fields.Surface, modeReuse).Inc()
		return
	}

	if ix.built && ix.isAppend(records) {
		for _, r := range records[ix.fp.count:] {
			ix.entries[ix.fields.Key(r)] = ix.fields.Entry(r)
		}
		metrics.IndexBuildsTotal.WithLabelValues(ix.fields.Surface, modeDelta).Inc()
	} else {
		entries := make(map[string]string, len(records))
		for _, r := range records {
			entries[ix.fields.Key(r)] = ix.fields.Entry(r)
		}
		ix.entries = entries
		metrics.IndexBuildsTotal.WithLabelValues(ix.fields.Surface, modeFull).Inc()
	}

	ix.fp = fp
	ix.built = true
}

// isAppend reports whether records extend the previously indexed sequence.
func (ix *Indexer[T]) isAppend(records []T) bool {
	prev := ix.fp
	if prev.count == 0 || len(records) <= prev.count {
		return false
	}
	return ix.fields.Key(records[0]) == prev.first &&
		ix.fields.Key(records[prev.count-1]) == prev.last
}
