package store

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// MemStore is an in-memory Store with monotonic CAS tokens. It is the
// backing store for the server and for engine tests; fault injection
// hooks simulate conflicting writers and ownership moves.
type MemStore struct {
	mu      sync.Mutex
	docs    map[string]*memEntry
	casSeq  uint64
	seqno   uint64
	uuid    uint64
	now     func() time.Time
	forced  int // pending forced CAS conflicts
	unowned map[string]bool
}

type memEntry struct {
	value    []byte
	cas      uint64
	flags    uint32
	expiry   uint32
	deadline time.Time // zero when the document does not expire
	datatype Datatype
}

func NewMemStore() *MemStore {
	return &MemStore{
		docs:    make(map[string]*memEntry),
		uuid:    rand.Uint64(),
		now:     time.Now,
		unowned: make(map[string]bool),
	}
}

// ForceConflicts makes the next n CASStore calls fail with
// ErrCasMismatch regardless of the presented CAS, as if a concurrent
// writer won each race.
func (m *MemStore) ForceConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = n
}

// Disown marks a key as no longer belonging to this node.
func (m *MemStore) Disown(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unowned[key] = true
}

// SetClock replaces the expiry clock, for tests.
func (m *MemStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemStore) entry(key string) (*memEntry, error) {
	if m.unowned[key] {
		return nil, ErrNotOwner
	}
	e, ok := m.docs[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !e.deadline.IsZero() && !m.now().Before(e.deadline) {
		delete(m.docs, key)
		return nil, ErrKeyNotFound
	}
	return e, nil
}

func (m *MemStore) Get(ctx context.Context, key string) (*Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key)
	if err != nil {
		return nil, err
	}
	return &Doc{
		Key:      key,
		Value:    append([]byte(nil), e.value...),
		Cas:      e.cas,
		Flags:    e.flags,
		Expiry:   e.expiry,
		Datatype: e.datatype,
	}, nil
}

func (m *MemStore) Set(ctx context.Context, key string, value []byte, datatype Datatype, flags uint32, expiry uint32) (uint64, MutationID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unowned[key] {
		return 0, MutationID{}, ErrNotOwner
	}
	m.casSeq++
	m.seqno++
	e := &memEntry{
		value:    append([]byte(nil), value...),
		cas:      m.casSeq,
		flags:    flags,
		expiry:   expiry,
		datatype: datatype,
	}
	if expiry > 0 {
		e.deadline = m.now().Add(time.Duration(expiry) * time.Second)
	}
	m.docs[key] = e
	return e.cas, MutationID{UUID: m.uuid, Seqno: m.seqno}, nil
}

func (m *MemStore) CASStore(ctx context.Context, key string, value []byte, datatype Datatype, expectedCas uint64, newExpiry uint32) (uint64, MutationID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key)
	if err != nil {
		return 0, MutationID{}, err
	}
	if m.forced > 0 {
		m.forced--
		return 0, MutationID{}, ErrCasMismatch
	}
	if e.cas != expectedCas {
		return 0, MutationID{}, ErrCasMismatch
	}
	m.casSeq++
	m.seqno++
	e.value = append([]byte(nil), value...)
	e.cas = m.casSeq
	e.datatype = datatype
	if newExpiry > 0 {
		e.expiry = newExpiry
		e.deadline = m.now().Add(time.Duration(newExpiry) * time.Second)
	}
	return e.cas, MutationID{UUID: m.uuid, Seqno: m.seqno}, nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unowned[key] {
		return ErrNotOwner
	}
	if _, ok := m.docs[key]; !ok {
		return ErrKeyNotFound
	}
	delete(m.docs, key)
	return nil
}
