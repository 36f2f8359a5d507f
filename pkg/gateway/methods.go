package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// healthToolName is a builtin tool answered by the gateway itself, without
// spawning any plugin subprocess or touching the call counters.
const healthToolName = "health"

// registerMethods wires the RPC surface onto the router.
func (s *Server) registerMethods() {
	s.router.RegisterMethod("tools/list", s.handleToolsList)
	s.router.RegisterMethod("tools/call", s.handleToolsCall)
	s.router.RegisterMethod("health", s.handleHealth)
	s.router.RegisterMethod("ping", func(params map[string]any) (any, error) {
		return map[string]any{"pong": true}, nil
	})
}

// handleToolsList returns the full tool catalogue plus the builtin health
// tool.
func (s *Server) handleToolsList(params map[string]any) (any, error) {
	tools := make([]map[string]any, 0, s.catalog.Len()+1)
	for _, tool := range s.catalog.Tools() {
		tools = append(tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	tools = append(tools, map[string]any{
		"name":        healthToolName,
		"description": "Get server health, uptime, and call counters",
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	})

	return map[string]any{"tools": tools}, nil
}

// handleToolsCall dispatches one tool invocation. Dispatch failures come
// back as isError tool results so the caller sees the failure text; only
// malformed params produce an RPC-level error.
func (s *Server) handleToolsCall(params map[string]any) (any, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "tools/call requires a string name param",
		}
	}

	var args map[string]any
	if raw, present := params["arguments"]; present && raw != nil {
		args, ok = raw.(map[string]any)
		if !ok {
			return nil, &RPCError{
				Code:    InvalidParams,
				Message: "tools/call arguments must be an object",
			}
		}
	}

	if name == healthToolName {
		return s.healthToolResult()
	}

	// Correlates the start/finish pair for stream consumers
	callID := uuid.NewString()

	s.broadcaster.BroadcastTool("tool_call", "start", map[string]any{
		"call_id": callID, "name": name,
	})

	result, err := s.dispatcher.Call(context.Background(), name, args)
	if err != nil {
		s.broadcaster.BroadcastTool("tool_call", "finish", map[string]any{
			"call_id": callID, "name": name, "success": false,
		})
		return &ToolCallResult{
			Content: []ToolContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	s.broadcaster.BroadcastTool("tool_call", "finish", map[string]any{
		"call_id": callID, "name": name, "success": result.Succeeded(),
	})

	return &ToolCallResult{
		Content: []ToolContent{{Type: "text", Text: result.Text()}},
		IsError: !result.Succeeded(),
	}, nil
}

// handleHealth reports server liveness and the metric counters.
func (s *Server) handleHealth(params map[string]any) (any, error) {
	snap := s.metrics.Snapshot()
	return map[string]any{
		"status":             "ok",
		"uptime_s":           snap.UptimeSeconds,
		"plugins_discovered": snap.PluginsDiscovered,
		"tools_registered":   snap.ToolsRegistered,
		"tool_calls": map[string]any{
			"total":   snap.ToolCallsTotal,
			"success": snap.ToolCallsSuccess,
			"error":   snap.ToolCallsError,
		},
		"subscribers": s.broadcaster.SubscriberCount(),
	}, nil
}

func (s *Server) healthToolResult() (any, error) {
	status, err := s.handleHealth(nil)
	if err != nil {
		return nil, err
	}
	text, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode health status: %w", err)
	}
	return &ToolCallResult{
		Content: []ToolContent{{Type: "text", Text: string(text)}},
	}, nil
}
