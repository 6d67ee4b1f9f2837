package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/diag"
	"github.com/v0xg/macroweb/internal/executor"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/store"
)

const maxBodyBytes = 1 << 20

// KeyRelay forwards key presses to the active page
type KeyRelay interface {
	PressKey(ctx context.Context, key string) error
}

// MacroRunner runs a serialized macro and reports what happened
type MacroRunner interface {
	RunMacro(ctx context.Context, source []byte) (*RunReport, error)
}

// Server exposes the message channel
type Server struct {
	router *mux.Router
	store  store.Store
	keys   KeyRelay
	runner MacroRunner
	logger *zap.Logger
}

// NewServer wires the routes. keys and runner may be nil when no page is
// attached; the matching requests then fail with 503.
func NewServer(st store.Store, keys KeyRelay, runner MacroRunner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router: mux.NewRouter(),
		store:  st,
		keys:   keys,
		runner: runner,
		logger: logger,
	}

	s.router.Use(s.requestID)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/messages", s.handleMessage).Methods(http.MethodPost)
	s.router.HandleFunc("/macros", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/macros/{name}", s.handlePut).Methods(http.MethodPut)
	s.router.HandleFunc("/macros/{name}", s.handleDelete).Methods(http.MethodDelete)
	s.router.HandleFunc("/runs", s.handleRun).Methods(http.MethodPost)
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("message server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&msg); err != nil || !msg.valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid message"})
		return
	}

	switch msg.Type {
	case TypeSaveMacro:
		s.save(w, r, *msg.Name, *msg.Macro)
	case TypeLoadMacros:
		s.handleList(w, r)
	case TypeDeleteMacro:
		s.delete(w, r, *msg.Name)
	case TypeRelayKey:
		s.relayKey(w, *msg.Key)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unknown message type"})
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, macrosResponse{Macros: all})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid macro data"})
		return
	}
	s.save(w, r, mux.Vars(r)["name"], string(body))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.delete(w, r, mux.Vars(r)["name"])
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, name, serialized string) {
	if err := s.store.Save(r.Context(), name, serialized); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// relayKey acknowledges before the key reaches the page
func (s *Server) relayKey(w http.ResponseWriter, key string) {
	if s.keys == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "No page attached"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keys.PressKey(ctx, key); err != nil {
			s.logger.Warn("key relay failed", zap.String("key", key), zap.Error(err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "No page attached"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid macro JSON"})
		return
	}

	report, err := s.runner.RunMacro(r.Context(), body)
	if err != nil {
		if errors.Is(err, macro.ErrInvalidMacro) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid macro JSON"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrEmptyName) {
		status = http.StatusBadRequest
	}
	s.logger.Warn("store request failed", zap.Error(err))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// PageRunner runs macros against one page, one run at a time
type PageRunner struct {
	mu     sync.Mutex
	page   executor.Page
	opts   executor.Options
	logger *zap.Logger
}

// NewPageRunner creates a runner for page
func NewPageRunner(page executor.Page, opts executor.Options, logger *zap.Logger) *PageRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageRunner{page: page, opts: opts, logger: logger}
}

// RunMacro implements MacroRunner. Each run gets its own diagnostics log and
// status, returned in the report. A started run always completes: it is not
// cancelled when the caller goes away.
func (p *PageRunner) RunMacro(ctx context.Context, source []byte) (*RunReport, error) {
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	log := diag.NewLog(nil, p.logger)
	status := &diag.Recorder{}
	runner := executor.NewRunner(p.page, log, status, p.opts, p.logger)

	summary, err := runner.RunSource(ctx, source)
	if err != nil {
		return nil, err
	}

	msg, isErr := status.Last()
	return &RunReport{
		RunID:       summary.RunID,
		Succeeded:   summary.Succeeded(),
		NotFound:    summary.NotFound(),
		Failed:      summary.Failed(),
		Status:      msg,
		StatusError: isErr,
		Diagnostics: log.Lines(),
	}, nil
}
