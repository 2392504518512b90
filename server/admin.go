package server

import (
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/encoding/json"
)

// adminServer is the HTTP sidecar exposing stats and health.
type adminServer struct {
	listener net.Listener
	httpSrv  *http.Server
}

func newAdminServer(addr string, s *Server) (*adminServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		buf, err := json.Marshal(s.Engine.Stats().Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(buf)
	})

	a := &adminServer{
		listener: listener,
		httpSrv:  &http.Server{Handler: r},
	}
	go func() {
		if err := a.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.Spec.Log.Error("admin server error", "error", err)
		}
	}()
	s.Spec.Log.Info("admin endpoint started", "addr", listener.Addr().String())
	return a, nil
}

func (a *adminServer) Addr() string {
	return a.listener.Addr().String()
}

func (a *adminServer) Close() error {
	return a.httpSrv.Close()
}
