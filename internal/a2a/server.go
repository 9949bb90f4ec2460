package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// maxRequestBytes caps the size of an incoming JSON-RPC request.
const maxRequestBytes = 8 << 20

// Handler processes A2A requests for one agent.
type Handler interface {
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)
	HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error)
	HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

// Server exposes a Handler over HTTP: the agent card at AgentCardPath and
// JSON-RPC at "/".
type Server struct {
	card    AgentCard
	handler Handler
	logger  *slog.Logger
	mux     *http.ServeMux

	mu   sync.Mutex
	http *http.Server
	ln   net.Listener
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for request failures.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for card backed by handler.
func NewServer(card AgentCard, handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		card:    card,
		handler: handler,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET "+AgentCardPath, s.handleAgentCard)
	s.mux.HandleFunc("POST /", s.handleJSONRPC)
	return s
}

// Handler returns the server's routes, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves in the background. Listening happens
// before Start returns, so addr may use port 0; URL reports the bound
// address.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return errors.New("a2a: server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("a2a: listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("a2a server stopped", "addr", ln.Addr().String(), "error", err)
		}
	}()
	return nil
}

// URL returns the base URL of a started server, or "".
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Stop gracefully shuts the server down. Stopping a server that was never
// started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, nil, ErrCodeParse, "parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeError(w, req.ID, ErrCodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
		return
	}

	ctx := r.Context()
	switch req.Method {
	case MethodSendMessage:
		dispatch(ctx, s, w, &req, s.handler.HandleSendMessage)
	case MethodGetTask:
		dispatch(ctx, s, w, &req, s.handler.HandleGetTask)
	case MethodCancelTask:
		dispatch(ctx, s, w, &req, s.handler.HandleCancelTask)
	default:
		writeError(w, req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

// dispatch decodes params into P, calls fn and writes its result.
func dispatch[P any](ctx context.Context, s *Server, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (*Task, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, ErrCodeInvalidParams, "invalid params: "+err.Error())
		return
	}

	task, err := fn(ctx, params)
	if err != nil {
		s.logger.Warn("a2a request failed", "agent", s.card.Name, "method", req.Method, "error", err)
		writeError(w, req.ID, errorCode(err), err.Error())
		return
	}
	writeResult(w, req.ID, task)
}
