package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// sessionBuffer bounds queued responses for a session whose stream reader
// has fallen behind.
const sessionBuffer = 16

// sseSession is one live event-stream connection. Responses to messages
// POSTed against the session are delivered over its stream, never in the
// POST body.
type sseSession struct {
	id  string
	out chan *RPCResponse
}

// sessionRegistry tracks live SSE sessions by id.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sseSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*sseSession)}
}

func (r *sessionRegistry) add() *sseSession {
	id, _ := gonanoid.New()
	session := &sseSession{
		id:  id,
		out: make(chan *RPCResponse, sessionBuffer),
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()
	return session
}

func (r *sessionRegistry) get(id string) (*sseSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// handleSSE serves the event stream. The first frame is an endpoint event
// naming the message path for this session; afterwards the stream carries
// RPC responses, broadcast notifications, and keepalive comments until the
// client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	session := s.sessions.add()
	defer s.sessions.remove(session.id)

	events := s.broadcaster.Subscribe("sse:" + session.id)
	defer s.broadcaster.Unsubscribe("sse:" + session.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", session.id)
	flusher.Flush()

	s.logger.Info().
		Str("session", session.id).
		Str("remote", r.RemoteAddr).
		Msg("SSE session opened")

	keepalive := time.NewTicker(s.cfg.TickInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info().Str("session", session.id).Msg("SSE session closed")
			return

		case response := <-session.out:
			payload, err := json.Marshal(response)
			if err != nil {
				s.logger.Error().Err(err).Str("session", session.id).Msg("Failed to encode response")
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()

		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// handleMessages accepts JSON-RPC requests for a live SSE session. The HTTP
// reply is only an accept; results travel back over the session stream.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	session, ok := s.sessions.get(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
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
		s.logger.Warn().
			Str("session", sessionID).
			Str("reason", reason).
			Msg("Message rejected by rate limit")
		writeJSON(w, http.StatusTooManyRequests, &RPCResponse{ID: req.ID, JSONRPC: "2.0", Error: rateLimitError(reason)})
		return
	}

	s.logger.Debug().
		Str("session", sessionID).
		Str("method", req.Method).
		Msg("Message accepted")

	// Handle off the request goroutine so a long tool call does not block
	// the client from posting further messages on the same session.
	limiter.RecordRequestStart()
	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		defer limiter.RecordRequestEnd()

		response := s.router.RouteRequest(req)

		// Notifications carry no id and get no response
		if req.ID == nil {
			return
		}

		select {
		case session.out <- response:
		default:
			s.logger.Warn().
				Str("session", sessionID).
				Str("method", req.Method).
				Msg("Session buffer full, dropping response")
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}
