package gateway

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Auth is the shared secret, not the Origin header; browser clients
		// connect from arbitrary origins.
		return true
	},
}

// handleWS serves the WebSocket transport. It speaks the same JSON-RPC
// router as the SSE transport, with responses and broadcast notifications
// interleaved on the socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID, _ := gonanoid.New()
	logger := s.logger.With().Str("client", clientID).Logger()
	logger.Info().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	limiter := s.limiters.get(clientKey(r))

	// Interleaved writers (responses and broadcasts) share one socket
	var writeMu sync.Mutex
	writeJSONFrame := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	events := s.broadcaster.Subscribe("ws:" + clientID)
	defer s.broadcaster.Unsubscribe("ws:" + clientID)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case event, open := <-events:
				if !open {
					return
				}
				if err := writeJSONFrame(event); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Msg("WebSocket client disconnected")
			return
		}

		req, err := s.router.ParseRequest(data)
		if err != nil {
			rpcErr, ok := err.(*RPCError)
			if !ok {
				rpcErr = &RPCError{Code: ParseError, Message: err.Error()}
			}
			if werr := writeJSONFrame(&RPCResponse{JSONRPC: "2.0", Error: rpcErr}); werr != nil {
				return
			}
			continue
		}

		if allowed, reason := limiter.CheckRequestAllowed(); !allowed {
			logger.Warn().Str("reason", reason).Msg("Frame rejected by rate limit")
			if werr := writeJSONFrame(&RPCResponse{ID: req.ID, JSONRPC: "2.0", Error: rateLimitError(reason)}); werr != nil {
				return
			}
			continue
		}

		limiter.RecordRequestStart()
		s.inFlight.Add(1)
		go func(req *RPCRequest) {
			defer s.inFlight.Done()
			defer limiter.RecordRequestEnd()

			response := s.router.RouteRequest(req)
			if req.ID == nil {
				return
			}
			if err := writeJSONFrame(response); err != nil {
				logger.Warn().Err(err).Msg("Failed to write response")
			}
		}(req)
	}
}
