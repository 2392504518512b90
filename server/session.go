package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/fragd/fragd/engine"
	"github.com/fragd/fragd/store"
	"github.com/fragd/fragd/subdoc"
	"github.com/fragd/fragd/wire"
)

// Session is one client connection. The reader decodes frames and
// dispatches them synchronously, so responses enter the outgoing
// channel in receipt order; the writer drains that channel. Responses
// are therefore 1:1 ordered with requests even when the client
// pipelines.
type Session struct {
	ID     string
	conn   io.ReadWriteCloser
	engine *engine.Engine
	store  store.Store
	log    *slog.Logger

	// enc holds the features negotiated by Hello. It is written only
	// by the reader goroutine, which also encodes every response, so
	// no locking is needed.
	enc wire.EncodeContext

	outgoing chan []byte
	done     chan struct{}

	closeOnce    sync.Once
	closeOutOnce sync.Once
}

// SessionConfig contains configuration for creating a session.
type SessionConfig struct {
	Engine         *engine.Engine
	Store          store.Store
	Log            *slog.Logger
	OutgoingBuffer int // default 100
}

// NewSession creates a new session for the given connection.
func NewSession(id string, conn io.ReadWriteCloser, cfg *SessionConfig) *Session {
	bufSize := cfg.OutgoingBuffer
	if bufSize <= 0 {
		bufSize = 100
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		ID:       id,
		conn:     conn,
		engine:   cfg.Engine,
		store:    cfg.Store,
		log:      log.With("session", id),
		outgoing: make(chan []byte, bufSize),
		done:     make(chan struct{}),
	}
}

// Run starts the session and blocks until it completes.
func (s *Session) Run() error {
	var wg sync.WaitGroup

	// Close the connection when done is signaled, unblocking a reader
	// stuck in a blocking read.
	wg.Go(func() {
		<-s.done
		s.conn.Close()
	})

	wg.Go(func() {
		s.writer()
	})

	err := s.reader()

	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.closeOutOnce.Do(func() {
		close(s.outgoing)
	})

	wg.Wait()
	return err
}

// Close signals the session to shut down.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.conn.Close()
}

func (s *Session) writer() {
	for buf := range s.outgoing {
		if _, err := s.conn.Write(buf); err != nil {
			s.log.Debug("write error", "error", err)
			return
		}
	}
}

func (s *Session) reader() error {
	br := bufio.NewReader(s.conn)
	for {
		frame, err := wire.ReadFrame(br)
		if err != nil {
			if errors.Is(err, wire.ErrTooBig) && frame != nil {
				s.log.Debug("oversized frame", "op", frame.Header.Op, "bodyLen", frame.Header.BodyLen)
				s.sendStatus(frame, subdoc.StatusTooBig, err.Error())
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			select {
			case <-s.done:
				return nil // Clean shutdown
			default:
			}
			return err
		}
		if frame.Header.Magic != wire.MagicRequest {
			s.sendStatus(frame, subdoc.StatusInvalidArgs, "expected request magic")
			continue
		}
		s.dispatch(frame)
	}
}

// dispatch handles one request frame and queues exactly one response.
func (s *Session) dispatch(frame *wire.Frame) {
	op := frame.Header.Op
	switch {
	case op == wire.OpHello:
		s.handleHello(frame)
	case op == wire.OpNoop:
		s.sendStatus(frame, subdoc.StatusSuccess, "")
	case op == wire.OpGetDoc:
		s.handleGetDoc(frame)
	case op == wire.OpSetDoc:
		s.handleSetDoc(frame)
	case op == wire.OpDeleteDoc:
		s.handleDeleteDoc(frame)
	case op == byte(subdoc.OpMultiLookup):
		s.handleMultiLookup(frame)
	case op == byte(subdoc.OpMultiMutation):
		s.handleMultiMutation(frame)
	case subdoc.Op(op).Lookup() || subdoc.Op(op).Mutation():
		s.handleSubdoc(frame)
	default:
		s.sendStatus(frame, subdoc.StatusInvalidArgs, "unknown opcode")
	}
}

func (s *Session) handleHello(frame *wire.Frame) {
	requested, err := wire.DecodeFeatures(frame.Value)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	var accepted []uint16
	for _, f := range requested {
		if f == wire.FeatureMutationSeqno {
			s.enc.MutationSeqno = true
			accepted = append(accepted, f)
		}
	}
	s.log.Debug("hello", "client", string(frame.Key), "mutationSeqno", s.enc.MutationSeqno)
	s.send(&wire.Frame{
		Header: s.respHeader(frame, subdoc.StatusSuccess),
		Value:  wire.AppendFeatures(nil, accepted),
	})
}

func (s *Session) handleGetDoc(frame *wire.Frame) {
	doc, err := s.store.Get(context.Background(), string(frame.Key))
	if err != nil {
		s.sendStatus(frame, storeStatus(err), "")
		return
	}
	h := s.respHeader(frame, subdoc.StatusSuccess)
	h.Cas = doc.Cas
	h.Datatype = byte(doc.Datatype)
	s.send(&wire.Frame{
		Header: h,
		Extras: wire.AppendFlags(nil, doc.Flags),
		Value:  doc.Value,
	})
}

func (s *Session) handleSetDoc(frame *wire.Frame) {
	flags, expiry, err := wire.DecodeStoreExtras(frame.Extras)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	datatype := store.DatatypeRaw
	if frame.Header.Datatype == byte(store.DatatypeJSON) {
		datatype = store.DatatypeJSON
	}
	cas, mid, err := s.store.Set(context.Background(), string(frame.Key), frame.Value, datatype, flags, expiry)
	if err != nil {
		s.sendStatus(frame, storeStatus(err), "")
		return
	}
	h := s.respHeader(frame, subdoc.StatusSuccess)
	h.Cas = cas
	s.send(&wire.Frame{
		Header: h,
		Extras: s.mutationExtras(mid),
	})
}

func (s *Session) handleDeleteDoc(frame *wire.Frame) {
	if err := s.store.Delete(context.Background(), string(frame.Key)); err != nil {
		s.sendStatus(frame, storeStatus(err), "")
		return
	}
	s.sendStatus(frame, subdoc.StatusSuccess, "")
}

func (s *Session) handleSubdoc(frame *wire.Frame) {
	req, err := wire.DecodeSubdocRequest(frame)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	op := subdoc.Op(frame.Header.Op)
	res := s.engine.Execute(context.Background(), &engine.Command{
		Op:     op,
		Key:    string(frame.Key),
		Path:   req.Path,
		Value:  req.Value,
		Flags:  req.Flags,
		Cas:    frame.Header.Cas,
		Expiry: req.Expiry,
	})
	if !res.Status.Ok() {
		s.sendStatus(frame, res.Status, res.Status.String())
		return
	}
	h := s.respHeader(frame, subdoc.StatusSuccess)
	h.Cas = res.Cas
	resp := &wire.Frame{Header: h, Value: res.Value}
	if op.Mutation() {
		resp.Extras = s.mutationExtras(res.MutationID)
	}
	s.send(resp)
}

func (s *Session) handleMultiLookup(frame *wire.Frame) {
	wireSpecs, err := wire.DecodeLookupSpecs(frame.Value)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	specs := make([]engine.LookupSpec, len(wireSpecs))
	for i, ws := range wireSpecs {
		specs[i] = engine.LookupSpec{Op: ws.Op, Path: ws.Path, Flags: ws.Flags}
	}
	res := s.engine.MultiLookup(context.Background(), string(frame.Key), specs)
	if res.Status != subdoc.StatusSuccess && res.Status != subdoc.StatusMultiPathFailure {
		s.sendStatus(frame, res.Status, res.Status.String())
		return
	}
	// The body carries every spec's outcome even when the overall
	// status reports a partial failure.
	results := make([]wire.LookupResult, len(res.Specs))
	for i, sr := range res.Specs {
		results[i] = wire.LookupResult{Status: sr.Status, Value: sr.Value}
	}
	h := s.respHeader(frame, res.Status)
	h.Cas = res.Cas
	s.send(&wire.Frame{
		Header: h,
		Value:  wire.AppendLookupResults(nil, results),
	})
}

func (s *Session) handleMultiMutation(frame *wire.Frame) {
	expiry, err := wire.DecodeExpiryExtras(frame.Extras)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	wireSpecs, err := wire.DecodeMutationSpecs(frame.Value)
	if err != nil {
		s.sendStatus(frame, subdoc.StatusInvalidArgs, err.Error())
		return
	}
	specs := make([]engine.MutationSpec, len(wireSpecs))
	for i, ws := range wireSpecs {
		specs[i] = engine.MutationSpec{Op: ws.Op, Path: ws.Path, Flags: ws.Flags, Value: ws.Value}
	}
	res := s.engine.MultiMutation(context.Background(), string(frame.Key), specs, frame.Header.Cas, expiry)
	switch res.Status {
	case subdoc.StatusSuccess:
		results := make([]wire.MutationResult, len(res.Specs))
		for i, sr := range res.Specs {
			results[i] = wire.MutationResult{Index: uint8(sr.Index), Status: sr.Status, Value: sr.Value}
		}
		h := s.respHeader(frame, subdoc.StatusSuccess)
		h.Cas = res.Cas
		s.send(&wire.Frame{
			Header: h,
			Extras: s.mutationExtras(res.MutationID),
			Value:  wire.AppendMutationResults(nil, results),
		})
	case subdoc.StatusMultiPathFailure:
		s.send(&wire.Frame{
			Header: s.respHeader(frame, res.Status),
			Value: wire.AppendMultiFailure(nil, wire.MultiFailure{
				Index:  uint8(res.FailIndex),
				Status: res.FailStatus,
			}),
		})
	default:
		s.sendStatus(frame, res.Status, res.Status.String())
	}
}

// mutationExtras encodes the sequence-number extras when the session
// negotiated them, nil otherwise.
func (s *Session) mutationExtras(mid store.MutationID) []byte {
	if !s.enc.MutationSeqno {
		return nil
	}
	return wire.AppendMutationExtras(nil, wire.MutationExtras{UUID: mid.UUID, Seqno: mid.Seqno})
}

func (s *Session) respHeader(req *wire.Frame, status subdoc.Status) wire.Header {
	return wire.Header{
		Magic:  wire.MagicResponse,
		Op:     req.Header.Op,
		Status: uint16(status),
		Opaque: req.Header.Opaque,
	}
}

// sendStatus queues a bare response: empty body on success, a
// human-readable context string on failure.
func (s *Session) sendStatus(req *wire.Frame, status subdoc.Status, msg string) {
	f := &wire.Frame{Header: s.respHeader(req, status)}
	if !status.Ok() && msg != "" {
		f.Value = []byte(msg)
	}
	s.send(f)
}

func (s *Session) send(f *wire.Frame) {
	select {
	case s.outgoing <- f.Append(nil):
	case <-s.done:
	}
}

// storeStatus maps store collaborator errors onto protocol statuses.
func storeStatus(err error) subdoc.Status {
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		return subdoc.StatusKeyNotFound
	case errors.Is(err, store.ErrCasMismatch):
		return subdoc.StatusKeyExists
	case errors.Is(err, store.ErrNotOwner):
		return subdoc.StatusNotOwner
	}
	return subdoc.StatusBusy
}
