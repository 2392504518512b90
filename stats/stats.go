// Package stats accumulates per-command subdocument counters. All
// counters are bumped only on success.
package stats

import (
	"sync/atomic"
)

// Stats holds the engine's command counters: per class (lookup or
// mutation) an operation count, the total bytes of every document
// involved, and the bytes of the fragments extracted or inserted.
type Stats struct {
	LookupCount     atomic.Int64
	LookupDocBytes  atomic.Int64
	LookupFragBytes atomic.Int64

	MutationCount     atomic.Int64
	MutationDocBytes  atomic.Int64
	MutationFragBytes atomic.Int64
}

func New() *Stats {
	return &Stats{}
}

// Lookup records one successful lookup: the size of the whole document
// it read and the bytes of the fragment(s) extracted.
func (s *Stats) Lookup(docBytes, fragBytes int) {
	s.LookupCount.Add(1)
	s.LookupDocBytes.Add(int64(docBytes))
	s.LookupFragBytes.Add(int64(fragBytes))
}

// Mutation records one successful mutation: the size of the document
// written and the bytes of the value fragment(s) inserted.
func (s *Stats) Mutation(docBytes, fragBytes int) {
	s.MutationCount.Add(1)
	s.MutationDocBytes.Add(int64(docBytes))
	s.MutationFragBytes.Add(int64(fragBytes))
}

// Snapshot is a point-in-time copy of the counters, in a form the
// admin endpoint can serialize.
type Snapshot struct {
	LookupCount     int64 `json:"cmd_subdoc_lookup"`
	LookupDocBytes  int64 `json:"bytes_subdoc_lookup_total"`
	LookupFragBytes int64 `json:"bytes_subdoc_lookup_extracted"`

	MutationCount     int64 `json:"cmd_subdoc_mutation"`
	MutationDocBytes  int64 `json:"bytes_subdoc_mutation_total"`
	MutationFragBytes int64 `json:"bytes_subdoc_mutation_inserted"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		LookupCount:       s.LookupCount.Load(),
		LookupDocBytes:    s.LookupDocBytes.Load(),
		LookupFragBytes:   s.LookupFragBytes.Load(),
		MutationCount:     s.MutationCount.Load(),
		MutationDocBytes:  s.MutationDocBytes.Load(),
		MutationFragBytes: s.MutationFragBytes.Load(),
	}
}
