// Package store defines the key-value collaborator the subdocument
// engine runs against: fetch and conditional-store primitives keyed by
// a per-document CAS token.
package store

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound reports an absent (or expired) document.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCasMismatch reports that a conditional store lost the race: a
	// concurrent writer changed the document after the caller fetched it.
	ErrCasMismatch = errors.New("cas mismatch")

	// ErrNotOwner reports that the key no longer belongs to this node.
	ErrNotOwner = errors.New("key not owned by this node")
)

// Datatype classifies a stored value's encoding. Subdocument
// operations only apply to JSON documents.
type Datatype uint8

const (
	DatatypeRaw Datatype = iota
	DatatypeJSON
)

// Doc is a snapshot of a stored document. The engine holds it
// transiently for one command attempt and discards it.
type Doc struct {
	Key      string
	Value    []byte
	Cas      uint64
	Flags    uint32
	Expiry   uint32
	Datatype Datatype
}

// MutationID identifies a committed mutation for sequence-number
// reporting: the store's instance UUID plus a per-store sequence.
type MutationID struct {
	UUID  uint64
	Seqno uint64
}

// Store is the key-value collaborator interface. Implementations must
// make CASStore an atomic point-in-time swap: the new value becomes
// visible in full or not at all.
type Store interface {
	// Get fetches the current document snapshot, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (*Doc, error)

	// Set stores the document unconditionally, creating it if absent,
	// and returns the new CAS.
	Set(ctx context.Context, key string, value []byte, datatype Datatype, flags uint32, expiry uint32) (uint64, MutationID, error)

	// CASStore replaces the document only if its current CAS equals
	// expectedCas, returning the new CAS or ErrCasMismatch. A zero
	// newExpiry keeps the document's current expiry.
	CASStore(ctx context.Context, key string, value []byte, datatype Datatype, expectedCas uint64, newExpiry uint32) (uint64, MutationID, error)

	// Delete removes the document.
	Delete(ctx context.Context, key string) error
}
