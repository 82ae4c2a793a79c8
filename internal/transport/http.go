// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport binds the ledger engine to JSON-over-HTTP,
// following the teacher's lib/service.HTTPServer lifecycle: a listener
// bound eagerly so Ready()/Addr() are usable in tests, graceful
// shutdown on context cancellation, and the same ReadHeaderTimeout /
// ReadTimeout / WriteTimeout / IdleTimeout hardening against slow
// clients. Everything about request orchestration and identity is
// explicitly out of scope for this module (spec.md's non-goals) —
// this package only exposes the four operations the core itself
// defines: health, state projection, commit, and pure validation.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danvoulez/UBL-Containers/internal/envelope"
	"github.com/danvoulez/UBL-Containers/internal/ledger"
	"github.com/danvoulez/UBL-Containers/internal/membrane"
)

// Version is reported by GET /health. It identifies the core's wire
// protocol, not a build number.
const Version = "1"

// Engine is the subset of *ledger.Engine the transport needs, kept
// narrow so handlers are testable against a fake.
type Engine interface {
	GetState(ctx context.Context, containerID string) (ledger.ContainerState, error)
	Commit(ctx context.Context, link envelope.LinkCommit) (ledger.Receipt, error)
	Validate(ctx context.Context, link envelope.LinkCommit) (*membrane.Rejection, error)
}

// Server is an HTTP binding for Engine.
type Server struct {
	address         string
	engine          Engine
	logger          *slog.Logger
	shutdownTimeout time.Duration
	containerID     string

	ready chan struct{}
	addr  net.Addr
}

// Config configures a Server.
type Config struct {
	Address         string
	Engine          Engine
	Logger          *slog.Logger
	ShutdownTimeout time.Duration

	// ContainerID, if set, puts the server in single-container mode
	// (spec.md §6's container_id configuration option): the bare
	// /state, /commit, and /validate routes implicitly target this
	// container, in addition to the always-available
	// /state/{container_id} form.
	ContainerID string
}

func New(cfg Config) *Server {
	if cfg.Address == "" {
		panic("transport.Server: Address is required")
	}
	if cfg.Engine == nil {
		panic("transport.Server: Engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		address:         cfg.Address,
		engine:          cfg.Engine,
		logger:          logger,
		shutdownTimeout: timeout,
		containerID:     cfg.ContainerID,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the listener is bound and accepting.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the resolved listen address. Only valid after Ready().
func (s *Server) Addr() net.Addr { return s.addr }

// Serve binds the listener and blocks until ctx is cancelled, then
// drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("transport: listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("transport listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("transport shutting down")
	case err := <-serveDone:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("transport shutdown error", "error", err)
		return fmt.Errorf("transport shutdown: %w", err)
	}
	s.logger.Info("transport stopped")
	return nil
}

func (s *Server) router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state/{container_id}", s.handleGetState)
	mux.HandleFunc("POST /commit", s.handleCommit)
	mux.HandleFunc("POST /validate", s.handleValidate)
	if s.containerID != "" {
		mux.HandleFunc("GET /state", s.handleGetState)
	}
	return s.withRequestID(mux)
}

// withRequestID stamps every request with a fresh UUID, both echoed
// back as a response header and bound into the logger used for that
// request's handler-side log lines, so a client-reported incident can
// be grepped out of server logs by a single correlation ID.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	if containerID == "" {
		containerID = s.containerID
	}
	state, err := s.engine.GetState(r.Context(), containerID)
	if err != nil {
		s.logger.Error("get state failed", "request_id", requestIDFrom(r.Context()), "container_id", containerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, stateBody{
		ContainerID:     state.ContainerID,
		Sequence:        state.Sequence,
		LastHash:        state.LastHash,
		PhysicalBalance: state.PhysicalBalance,
		MerkleRoot:      state.MerkleRoot,
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	link := req.toLinkCommit()
	if link.ContainerID == "" {
		link.ContainerID = s.containerID
	}
	receipt, err := s.engine.Commit(r.Context(), link)
	if err != nil {
		var rej *membrane.Rejection
		if errors.As(err, &rej) {
			writeJSON(w, http.StatusUnprocessableEntity, receiptBody{Status: "REJECTED", Error: rej.Message, Code: string(rej.Code)})
			return
		}
		s.logger.Error("commit failed", "request_id", requestIDFrom(r.Context()), "container_id", link.ContainerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, receiptBody{
		Status: "ACCEPTED",
		Receipt: &receiptFields{
			EntryHash:   receipt.EntryHash,
			Sequence:    receipt.Sequence,
			Timestamp:   receipt.Timestamp,
			ContainerID: receipt.ContainerID,
		},
	})
}

// handleValidate runs a candidate commit through the membrane without
// appending anything, so a client can check a signed link before
// submitting it for real.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	link := req.toLinkCommit()
	if link.ContainerID == "" {
		link.ContainerID = s.containerID
	}
	rej, err := s.engine.Validate(r.Context(), link)
	if err != nil {
		s.logger.Error("validate failed", "request_id", requestIDFrom(r.Context()), "container_id", link.ContainerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if rej != nil {
		writeJSON(w, http.StatusOK, validateBody{Valid: false, Error: rej.Message, Code: string(rej.Code)})
		return
	}
	writeJSON(w, http.StatusOK, validateBody{Valid: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
