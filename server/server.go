// Package server hosts the session protocol: a TCP listener feeding
// per-connection sessions that decode binary frames, dispatch into the
// subdocument engine, and answer in strict request order, plus an
// admin HTTP endpoint exposing the engine's stats.
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fragd/fragd/engine"
)

// Server owns the engine and its listeners.
type Server struct {
	Spec Spec

	Engine *engine.Engine

	tcpListener *TCPListener
	admin       *adminServer
}

// New creates a new Server instance.
func New(spec *Spec) *Server {
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(),
		}))
	}
	if spec.Config == nil {
		spec.Config = DefaultConfig()
	}
	return &Server{
		Spec: *spec,
		Engine: engine.New(spec.Store, &engine.Config{
			MaxAttempts: spec.Config.MaxAttempts,
			Log:         spec.Log,
		}),
	}
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// StartTCP starts the session listener on the given address.
// The listener runs in a separate goroutine.
func (s *Server) StartTCP(addr string) error {
	if s.tcpListener != nil {
		return fmt.Errorf("TCP listener already running")
	}
	listener, err := NewTCPListener(addr, s)
	if err != nil {
		return err
	}
	s.tcpListener = listener
	go func() {
		if err := listener.Serve(); err != nil {
			s.Spec.Log.Error("TCP listener error", "error", err)
		}
	}()
	return nil
}

// StopTCP stops the session listener and drains its sessions.
func (s *Server) StopTCP() error {
	if s.tcpListener == nil {
		return nil
	}
	err := s.tcpListener.Close()
	s.tcpListener = nil
	return err
}

// TCPAddr returns the session listener's address, or "" when not running.
func (s *Server) TCPAddr() string {
	if s.tcpListener == nil {
		return ""
	}
	return s.tcpListener.Addr().String()
}

// StartAdmin starts the admin HTTP endpoint on the given address.
func (s *Server) StartAdmin(addr string) error {
	if s.admin != nil {
		return fmt.Errorf("admin endpoint already running")
	}
	admin, err := newAdminServer(addr, s)
	if err != nil {
		return err
	}
	s.admin = admin
	return nil
}

// StopAdmin stops the admin HTTP endpoint.
func (s *Server) StopAdmin() error {
	if s.admin == nil {
		return nil
	}
	err := s.admin.Close()
	s.admin = nil
	return err
}

// AdminAddr returns the admin endpoint's address, or "" when not running.
func (s *Server) AdminAddr() string {
	if s.admin == nil {
		return ""
	}
	return s.admin.Addr()
}

// Close stops all listeners.
func (s *Server) Close() error {
	err := s.StopTCP()
	if aerr := s.StopAdmin(); err == nil {
		err = aerr
	}
	return err
}
