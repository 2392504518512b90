package engine

import (
	"context"
	"errors"

	"github.com/fragd/fragd/ir"
	"github.com/fragd/fragd/store"
	"github.com/fragd/fragd/subdoc"
)

// MaxBatchSpecs bounds the number of specs in one multi-path command.
const MaxBatchSpecs = 16

// LookupSpec is one entry of a multi-lookup command.
type LookupSpec struct {
	Op    subdoc.Op
	Path  string
	Flags subdoc.Flag
}

// MutationSpec is one entry of a multi-mutation command.
type MutationSpec struct {
	Op    subdoc.Op
	Path  string
	Flags subdoc.Flag
	Value []byte
}

// SpecResult is a per-spec outcome. Index is the spec's position in
// the request.
type SpecResult struct {
	Index  int
	Status subdoc.Status
	Value  []byte
}

// MultiResult is the outcome of a multi-path command.
//
// For multi-lookup, Specs holds every spec's outcome in input order
// and Status is Success when all succeeded, MultiPathFailure when any
// failed (the per-spec outcomes are still all present).
//
// For multi-mutation, a Status of MultiPathFailure means the batch was
// aborted with no effect: FailIndex and FailStatus identify the first
// failing spec. On Success, Specs holds entries only for specs whose
// operator produced a fragment.
type MultiResult struct {
	Status     subdoc.Status
	FailIndex  int
	FailStatus subdoc.Status
	Cas        uint64
	MutationID store.MutationID
	Specs      []SpecResult
}

// MultiLookup executes every spec against one fetched snapshot. It
// never short-circuits: each spec's outcome is recorded independently.
func (e *Engine) MultiLookup(ctx context.Context, key string, specs []LookupSpec) *MultiResult {
	if len(specs) == 0 || len(specs) > MaxBatchSpecs {
		return &MultiResult{Status: subdoc.StatusInvalidArgs}
	}
	for _, s := range specs {
		if !s.Op.Lookup() {
			return &MultiResult{Status: subdoc.StatusInvalidCombo}
		}
	}

	doc, root, st := e.fetch(ctx, key, 0)
	if !st.Ok() {
		return &MultiResult{Status: st}
	}

	res := &MultiResult{Status: subdoc.StatusSuccess, Cas: doc.Cas}
	fragBytes := 0
	for i, s := range specs {
		sr := SpecResult{Index: i}
		path, pst := parsePath(s.Path)
		if pst.Ok() {
			pst = s.Op.CheckFlags(s.Flags)
		}
		switch {
		case !pst.Ok():
			sr.Status = pst
		default:
			r := subdoc.Apply(root, s.Op, path, nil, s.Flags)
			sr.Status = r.Status
			sr.Value = r.Value
		}
		if !sr.Status.Ok() {
			res.Status = subdoc.StatusMultiPathFailure
		}
		fragBytes += len(sr.Value)
		res.Specs = append(res.Specs, sr)
	}
	e.stats.Lookup(len(doc.Value), fragBytes)
	return res
}

// MultiMutation applies the specs in order to one in-memory tree and
// commits the result in a single conditional store. The first failing
// spec aborts the batch with no partial effect.
func (e *Engine) MultiMutation(ctx context.Context, key string, specs []MutationSpec, explicitCas uint64, expiry uint32) *MultiResult {
	if len(specs) == 0 || len(specs) > MaxBatchSpecs {
		return &MultiResult{Status: subdoc.StatusInvalidArgs}
	}
	for _, s := range specs {
		if !s.Op.Mutation() {
			return &MultiResult{Status: subdoc.StatusInvalidCombo}
		}
	}

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		doc, root, st := e.fetch(ctx, key, explicitCas)
		if !st.Ok() {
			return &MultiResult{Status: st}
		}

		var results []SpecResult
		fragBytes := 0
		for i, s := range specs {
			path, pst := parsePath(s.Path)
			if pst.Ok() {
				pst = s.Op.CheckFlags(s.Flags)
			}
			r := subdoc.Result{Status: pst}
			if pst.Ok() {
				r = subdoc.Apply(root, s.Op, path, s.Value, s.Flags)
			}
			if !r.Status.Ok() {
				// Abort the whole batch: the mutated tree is
				// discarded, so none of the earlier specs take effect.
				return &MultiResult{
					Status:     subdoc.StatusMultiPathFailure,
					FailIndex:  i,
					FailStatus: r.Status,
				}
			}
			if r.Value != nil {
				results = append(results, SpecResult{Index: i, Status: r.Status, Value: r.Value})
			}
			fragBytes += len(s.Value)
		}

		encoded := ir.Encode(root)
		newCas, mid, err := e.store.CASStore(ctx, key, encoded, store.DatatypeJSON, doc.Cas, expiry)
		switch {
		case err == nil:
			e.stats.Mutation(len(encoded), fragBytes)
			return &MultiResult{
				Status:     subdoc.StatusSuccess,
				Cas:        newCas,
				MutationID: mid,
				Specs:      results,
			}
		case errors.Is(err, store.ErrCasMismatch):
			if explicitCas != 0 {
				return &MultiResult{Status: subdoc.StatusKeyExists}
			}
			e.log.Debug("cas race, retrying batch", "key", key, "attempt", attempt+1)
		case errors.Is(err, store.ErrKeyNotFound):
			// Deleted underneath us; the refetch will report it.
		case errors.Is(err, store.ErrNotOwner):
			return &MultiResult{Status: subdoc.StatusNotOwner}
		default:
			e.log.Error("store error", "key", key, "error", err)
			return &MultiResult{Status: subdoc.StatusBusy}
		}
	}
	return &MultiResult{Status: subdoc.StatusBusy}
}
