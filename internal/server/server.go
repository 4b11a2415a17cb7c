// Package server runs the MCP dispatch loop: it reads one JSON-RPC frame at a
// time from a transport, routes it to the tool registry and writes the reply.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/M3tu20222/tarim/internal/audit"
	"github.com/M3tu20222/tarim/internal/policy"
	"github.com/M3tu20222/tarim/internal/protocol"
	"github.com/M3tu20222/tarim/internal/registry"
	"github.com/M3tu20222/tarim/internal/transport"
)

// State is the dispatch loop's lifecycle state.
type State int32

const (
	Idle State = iota
	Handling
	Shutdown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Handling:
		return "handling"
	case Shutdown:
		return "shutdown"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options configure a Server.
type Options struct {
	Name         string // profile name, used in logs and audit events
	Version      string
	Instructions string
	ConfigPath   string         // recorded in the startup audit event
	Policy       *policy.Engine // nil allows every tool
	Audit        *audit.Logger  // nil disables auditing
	Logger       *slog.Logger
}

// Server handles MCP requests against a fixed registry.
type Server struct {
	registry *registry.Registry
	policy   *policy.Engine
	audit    *audit.Logger
	logger   *slog.Logger
	info     protocol.Implementation
	name     string
	instr    string
	config   string

	state   atomic.Int32
	handled atomic.Int64
}

// New creates a Server over reg.
func New(reg *registry.Registry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}
	return &Server{
		registry: reg,
		policy:   opts.Policy,
		audit:    opts.Audit,
		logger:   logger.With("server", opts.Name),
		info:     protocol.Implementation{Name: opts.Name, Version: version},
		name:     opts.Name,
		instr:    opts.Instructions,
		config:   opts.ConfigPath,
	}
}

// State returns the loop's current state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Handled returns the number of frames processed so far.
func (s *Server) Handled() int {
	return int(s.handled.Load())
}

// Serve runs the loop until the transport reports end of stream or ctx is
// cancelled, both of which return nil, or until the transport fails, which
// returns the error.
func (s *Server) Serve(ctx context.Context, t transport.Transport) (err error) {
	s.state.Store(int32(Idle))
	if s.audit != nil {
		s.audit.LogStartup(s.name, s.config, s.registry.Names())
	}
	defer func() {
		s.state.Store(int32(Shutdown))
		if s.audit != nil {
			s.audit.LogShutdown(s.name, s.Handled(), err)
		}
	}()

	for {
		frame, err := t.Receive(ctx)
		if errors.Is(err, io.EOF) {
			s.logger.Info("client closed the stream", "handled", s.Handled())
			return nil
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			s.logger.Info("shutting down", "cause", err, "handled", s.Handled())
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving frame: %w", err)
		}

		s.state.Store(int32(Handling))
		resp := s.HandleFrame(ctx, frame)
		s.handled.Add(1)
		if resp != nil {
			out, err := resp.Encode()
			if err != nil {
				s.logger.Error("encoding response", "err", err)
				out, _ = protocol.NewErrorResponse(resp.ID, protocol.CodeInternalError, "encoding response failed").Encode()
			}
			if err := t.Send(ctx, out); err != nil {
				if ctx.Err() != nil {
					s.logger.Info("shutting down before the response was sent", "cause", ctx.Err())
					return nil
				}
				return fmt.Errorf("sending response: %w", err)
			}
		}
		s.state.Store(int32(Idle))
	}
}

// HandleFrame processes a single frame and returns the response to send, or
// nil when the frame needs none.
func (s *Server) HandleFrame(ctx context.Context, data []byte) *protocol.Response {
	msg, err := protocol.ParseMessage(data)
	if msg == nil {
		s.logger.Warn("failed to parse client message", "err", err)
		return protocol.NewErrorResponse(nil, protocol.CodeParseError, "parse error")
	}
	if err != nil {
		s.logger.Warn("invalid request", "err", err)
		if msg.IsNotification() {
			return nil
		}
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidRequest, err.Error())
	}

	if msg.IsResponse() && msg.Method == "" {
		s.logger.Debug("ignoring client response", "id", string(msg.ID))
		return nil
	}
	if msg.Method == "" {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidRequest, "missing method")
	}
	if msg.IsNotification() {
		s.logger.Debug("notification", "method", msg.Method)
		return nil
	}

	switch msg.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(msg)
	case protocol.MethodPing:
		return protocol.NewResponse(msg.ID, struct{}{})
	case protocol.MethodToolsList:
		return protocol.NewResponse(msg.ID, s.listTools())
	case protocol.MethodToolsCall:
		return s.handleToolCall(ctx, msg)
	}
	s.logger.Debug("method not found", "method", msg.Method)
	return protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound, "method not found: "+msg.Method)
}

func (s *Server) handleInitialize(msg *protocol.Message) *protocol.Response {
	params, err := msg.AsInitialize()
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, err.Error())
	}
	version := protocol.NegotiateVersion(params.ProtocolVersion)
	attrs := []any{"requested", params.ProtocolVersion, "negotiated", version}
	if params.ClientInfo != nil {
		attrs = append(attrs, "client", params.ClientInfo.Name)
	}
	s.logger.Info("initialize", attrs...)

	return protocol.NewResponse(msg.ID, protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    protocol.ServerCapabilities{Tools: &protocol.ToolsCapability{}},
		ServerInfo:      s.info,
		Instructions:    s.instr,
	})
}

// listTools returns the registered tools the policy does not hide.
func (s *Server) listTools() protocol.ListToolsResult {
	tools := make([]protocol.ToolInfo, 0)
	for _, t := range s.registry.Tools() {
		if s.policy != nil && !s.policy.Visible(t.Name()) {
			continue
		}
		tools = append(tools, protocol.ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return protocol.ListToolsResult{Tools: tools}
}

// handleToolCall binds, authorises and runs a tool call. Every failure past
// parameter parsing is reported as an error result, not a JSON-RPC error.
func (s *Server) handleToolCall(ctx context.Context, msg *protocol.Message) *protocol.Response {
	tc, err := msg.AsToolCall()
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, err.Error())
	}

	start := time.Now()
	event := audit.ToolCallEvent{Server: s.name, Tool: tc.Name, Decision: "allow", Rule: -1}
	res := s.callTool(ctx, tc, &event)
	event.IsError = res.IsError
	event.DurationMs = time.Since(start).Milliseconds()

	if s.audit != nil {
		s.audit.LogToolCall(event)
	}
	level := slog.LevelInfo
	if res.IsError {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "tool call",
		"tool", tc.Name, "decision", event.Decision, "is_error", res.IsError, "duration_ms", event.DurationMs)

	return protocol.NewResponse(msg.ID, toCallResult(res))
}

func (s *Server) callTool(ctx context.Context, tc *protocol.ToolCall, event *audit.ToolCallEvent) registry.Result {
	tool, ok := s.registry.Lookup(tc.Name)
	if !ok {
		event.Reason = "unknown tool"
		return registry.Failure("unknown tool: " + tc.Name)
	}

	call, err := tool.Bind(tc.Arguments)
	if err != nil {
		event.Reason = "invalid arguments"
		return registry.Failure(err.Error())
	}
	event.Arguments = call.Args

	if s.policy != nil {
		decision := s.policy.Evaluate(tc.Name, call.Args)
		event.Decision = decision.Verdict()
		event.Rule = decision.MatchedRule
		event.Reason = decision.Reason
		if !decision.Allow {
			return registry.Failure("tool call denied by policy: " + decision.Reason)
		}
	}

	res, err := call.Invoke(ctx)
	if err != nil {
		s.logger.Error("tool failed", "tool", tc.Name, "err", err)
		return registry.Failure(fmt.Sprintf("Error executing tool %s: %v", tc.Name, err))
	}
	return res
}

func toCallResult(res registry.Result) *protocol.CallToolResult {
	out := protocol.TextResult(res.Text, res.IsError)
	if res.Structured != nil && !res.IsError {
		out.StructuredContent = res.Structured
	}
	return out
}
