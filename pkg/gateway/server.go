// Package gateway exposes the tool catalogue and dispatcher over JSON-RPC,
// reachable through an SSE event stream, a WebSocket, or plain HTTP POST.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/catalog"
	"github.com/harun/toolgate/pkg/dispatch"
)

// maxRequestBytes caps a single JSON-RPC request body.
const maxRequestBytes = 1 << 20

// Config holds the gateway's listen and auth settings.
type Config struct {
	Addr         string
	SharedSecret string
	TickInterval time.Duration

	// RequestsPerMinute and MaxConcurrent bound each remote client, since
	// every tools/call spawns a subprocess on this host.
	RequestsPerMinute int
	MaxConcurrent     int
}

// Server is the HTTP front of the dispatcher.
type Server struct {
	cfg         Config
	router      *RPCRouter
	sessions    *sessionRegistry
	broadcaster *EventBroadcaster
	catalog     *catalog.Catalog
	dispatcher  *dispatch.Dispatcher
	metrics     *metrics.Metrics
	limiters    *limiterRegistry
	logger      zerolog.Logger

	httpServer *http.Server
	listener   net.Listener
	inFlight   sync.WaitGroup
}

// NewServer creates the gateway around an already-built catalogue and
// dispatcher.
func NewServer(cfg Config, cat *catalog.Catalog, d *dispatch.Dispatcher, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}

	logger = logger.With().Str("component", "gateway").Logger()

	s := &Server{
		cfg:         cfg,
		router:      NewRPCRouter(),
		sessions:    newSessionRegistry(),
		broadcaster: NewEventBroadcaster(logger),
		catalog:     cat,
		dispatcher:  d,
		metrics:     m,
		limiters:    newLimiterRegistry(cfg.RequestsPerMinute, cfg.MaxConcurrent),
		logger:      logger,
	}
	s.registerMethods()
	return s
}

// Handler builds the full HTTP mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/messages", s.handleMessages)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Start begins listening. It returns once the listener is bound; serving
// continues in the background until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("addr", listener.Addr().String()).
		Int("tools", s.catalog.Len()).
		Msg("Gateway listening")

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Gateway serve failed")
		}
	}()

	return nil
}

// Addr returns the bound listen address, useful when the port was 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down and waits for in-flight calls to drain,
// bounded by the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info().Msg("Gateway shutting down")

	err := s.httpServer.Shutdown(ctx)

	drained := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown deadline reached with calls still in flight")
	}

	return err
}

// Broadcaster exposes the event fan-out for tests and embedders.
func (s *Server) Broadcaster() *EventBroadcaster {
	return s.broadcaster
}

// handleRPC answers a JSON-RPC request directly in the HTTP response body.
// Unlike the SSE pairing, this path is synchronous.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	req, err := s.router.ParseRequest(data)
	if err != nil {
		rpcErr, ok := err.(*RPCError)
		if !ok {
			rpcErr = &RPCError{Code: ParseError, Message: err.Error()}
		}
		writeJSON(w, http.StatusBadRequest, &RPCResponse{JSONRPC: "2.0", Error: rpcErr})
		return
	}

	limiter := s.limiters.get(clientKey(r))
	if allowed, reason := limiter.CheckRequestAllowed(); !allowed {
		s.logger.Warn().Str("client", clientKey(r)).Str("reason", reason).Msg("Request rejected by rate limit")
		writeJSON(w, http.StatusTooManyRequests, &RPCResponse{ID: req.ID, JSONRPC: "2.0", Error: rateLimitError(reason)})
		return
	}

	limiter.RecordRequestStart()
	s.inFlight.Add(1)
	response := s.router.RouteRequest(req)
	s.inFlight.Done()
	limiter.RecordRequestEnd()

	writeJSON(w, http.StatusOK, response)
}

// handleHealthz is the unauthenticated liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status, _ := s.handleHealth(nil)
	writeJSON(w, http.StatusOK, status)
}

// authorized checks the shared secret when one is configured. The secret
// rides in either a bearer token or the X-Toolgate-Secret header.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.SharedSecret == "" {
		return true
	}

	candidate := r.Header.Get("X-Toolgate-Secret")
	if candidate == "" {
		auth := r.Header.Get("Authorization")
		candidate = strings.TrimPrefix(auth, "Bearer ")
		if candidate == auth {
			candidate = ""
		}
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.cfg.SharedSecret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
