package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes structured JSON audit events, one per line.
type Logger struct {
	mu      sync.Mutex
	writer  io.Writer
	session string
}

// New creates a Logger that writes to the given writer. Every event it
// writes carries the same freshly generated session id.
func New(w io.Writer) *Logger {
	return &Logger{writer: w, session: uuid.NewString()}
}

// Session returns the id stamped on every event of this logger.
func (l *Logger) Session() string {
	return l.session
}

// ToolCallEvent represents a tool invocation audit record.
type ToolCallEvent struct {
	Server     string         `json:"server"`
	Tool       string         `json:"tool"`
	Arguments  map[string]any `json:"arguments"`
	Decision   string         `json:"decision"`
	Rule       int            `json:"matched_rule"`
	Reason     string         `json:"reason,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// LogToolCall records a tool invocation event.
func (l *Logger) LogToolCall(e ToolCallEvent) {
	record := map[string]any{
		"event":        "tool_call",
		"server":       e.Server,
		"tool":         e.Tool,
		"arguments":    e.Arguments,
		"decision":     e.Decision,
		"matched_rule": e.Rule,
	}
	if e.Reason != "" {
		record["reason"] = e.Reason
	}
	if e.IsError {
		record["is_error"] = true
	}
	if e.DurationMs > 0 {
		record["duration_ms"] = e.DurationMs
	}
	l.write(record)
}

// LogStartup records a server startup event.
func (l *Logger) LogStartup(server, configPath string, tools []string) {
	l.write(map[string]any{
		"event":       "startup",
		"server":      server,
		"config_file": configPath,
		"tools":       tools,
	})
}

// LogShutdown records a server shutdown event.
func (l *Logger) LogShutdown(server string, handled int, cause error) {
	record := map[string]any{
		"event":    "shutdown",
		"server":   server,
		"requests": handled,
	}
	if cause != nil {
		record["error"] = cause.Error()
	}
	l.write(record)
}

func (l *Logger) write(record map[string]any) {
	record["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	record["session"] = l.session

	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	data = append(data, '\n')
	l.writer.Write(data)
}
