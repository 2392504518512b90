// Package engine orchestrates subdocument commands against the store:
// it owns the fetch → parse → navigate/mutate → conditional-store
// pipeline, the bounded optimistic retry on conflicting writers, and
// the batch coordinator for multi-path commands.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fragd/fragd/docpath"
	"github.com/fragd/fragd/ir"
	"github.com/fragd/fragd/stats"
	"github.com/fragd/fragd/store"
	"github.com/fragd/fragd/subdoc"
)

// DefaultMaxAttempts bounds the optimistic retry loop. There is no
// wall-clock timeout: a command fails with a temporary-failure status
// once it loses this many CAS races in a row.
const DefaultMaxAttempts = 100

type Config struct {
	MaxAttempts int
	Stats       *stats.Stats
	Log         *slog.Logger
}

type Engine struct {
	store       store.Store
	stats       *stats.Stats
	maxAttempts int
	log         *slog.Logger
}

func New(st store.Store, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	e := &Engine{
		store:       st,
		stats:       cfg.Stats,
		maxAttempts: cfg.MaxAttempts,
		log:         cfg.Log,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.stats == nil {
		e.stats = stats.New()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Stats returns the engine's counters.
func (e *Engine) Stats() *stats.Stats {
	return e.stats
}

// Command is a decoded single-path subdocument command.
type Command struct {
	Op    subdoc.Op
	Key   string
	Path  string
	Value []byte
	Flags subdoc.Flag

	// Cas, when non-zero, is a caller-supplied CAS precondition: any
	// mismatch with the stored document fails immediately, with no
	// retry.
	Cas uint64

	// Expiry, when non-zero, is applied to the document on a
	// successful mutation.
	Expiry uint32
}

// Result is the outcome of a command. Cas and MutationID are set on
// success; Value carries the result fragment for operators that
// produce one.
type Result struct {
	Status     subdoc.Status
	Value      []byte
	Cas        uint64
	MutationID store.MutationID
}

// Execute runs a single-path command to completion, retrying the whole
// fetch/compute/store cycle on CAS races with concurrent writers.
func (e *Engine) Execute(ctx context.Context, cmd *Command) *Result {
	path, st := parsePath(cmd.Path)
	if !st.Ok() {
		return &Result{Status: st}
	}
	if st := cmd.Op.CheckFlags(cmd.Flags); !st.Ok() {
		return &Result{Status: st}
	}

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		doc, root, st := e.fetch(ctx, cmd.Key, cmd.Cas)
		if !st.Ok() {
			return &Result{Status: st}
		}

		res := subdoc.Apply(root, cmd.Op, path, cmd.Value, cmd.Flags)
		if !res.Status.Ok() {
			// Pipeline failures are terminal; nothing was stored.
			return &Result{Status: res.Status}
		}

		if cmd.Op.Lookup() {
			e.stats.Lookup(len(doc.Value), len(res.Value))
			return &Result{Status: subdoc.StatusSuccess, Value: res.Value, Cas: doc.Cas}
		}

		encoded := ir.Encode(root)
		newCas, mid, err := e.store.CASStore(ctx, cmd.Key, encoded, store.DatatypeJSON, doc.Cas, cmd.Expiry)
		switch {
		case err == nil:
			e.stats.Mutation(len(encoded), len(cmd.Value))
			return &Result{
				Status:     subdoc.StatusSuccess,
				Value:      res.Value,
				Cas:        newCas,
				MutationID: mid,
			}
		case errors.Is(err, store.ErrCasMismatch):
			if cmd.Cas != 0 {
				return &Result{Status: subdoc.StatusKeyExists}
			}
			e.log.Debug("cas race, retrying", "key", cmd.Key, "op", cmd.Op.String(), "attempt", attempt+1)
		case errors.Is(err, store.ErrKeyNotFound):
			// Deleted underneath us; the refetch will report it.
		case errors.Is(err, store.ErrNotOwner):
			return &Result{Status: subdoc.StatusNotOwner}
		default:
			e.log.Error("store error", "key", cmd.Key, "error", err)
			return &Result{Status: subdoc.StatusBusy}
		}
	}
	return &Result{Status: subdoc.StatusBusy}
}

// fetch reads and parses the current document, applying the explicit
// CAS precondition and the JSON datatype gate.
func (e *Engine) fetch(ctx context.Context, key string, explicitCas uint64) (*store.Doc, *ir.Node, subdoc.Status) {
	doc, err := e.store.Get(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrKeyNotFound):
			return nil, nil, subdoc.StatusKeyNotFound
		case errors.Is(err, store.ErrNotOwner):
			return nil, nil, subdoc.StatusNotOwner
		}
		e.log.Error("store error", "key", key, "error", err)
		return nil, nil, subdoc.StatusBusy
	}
	if explicitCas != 0 && explicitCas != doc.Cas {
		return nil, nil, subdoc.StatusKeyExists
	}
	if doc.Datatype != store.DatatypeJSON {
		return nil, nil, subdoc.StatusDocNotJSON
	}
	root, perr := ir.Parse(doc.Value)
	if perr != nil {
		return nil, nil, subdoc.StatusDocNotJSON
	}
	return doc, root, subdoc.StatusSuccess
}

// parsePath maps path parse failures onto protocol statuses.
func parsePath(p string) (docpath.Path, subdoc.Status) {
	path, err := docpath.Parse(p)
	switch {
	case err == nil:
		return path, subdoc.StatusSuccess
	case errors.Is(err, docpath.ErrTooDeep):
		return nil, subdoc.StatusPathTooDeep
	case errors.Is(err, docpath.ErrTooLong):
		return nil, subdoc.StatusInvalidArgs
	default:
		return nil, subdoc.StatusPathInvalid
	}
}
