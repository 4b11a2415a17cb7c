// Package protocol holds the JSON-RPC 2.0 envelope and the MCP payloads the
// server speaks.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC version accepted and emitted.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var nullID = json.RawMessage("null")

// Message represents a parsed JSON-RPC 2.0 message. The id is kept raw so
// it is echoed back byte for byte.
type Message struct {
	Raw     json.RawMessage `json:"-"`
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ParseMessage parses a raw JSON-RPC message.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing JSON-RPC message: %w", err)
	}
	if msg.JSONRPC != Version {
		return &msg, fmt.Errorf("unsupported jsonrpc version %q", msg.JSONRPC)
	}
	msg.Raw = data
	return &msg, nil
}

// AsToolCall extracts tool call parameters from a tools/call request.
func (m *Message) AsToolCall() (*ToolCall, error) {
	if m.Params == nil {
		return nil, fmt.Errorf("message has no params")
	}
	var tc ToolCall
	if err := json.Unmarshal(m.Params, &tc); err != nil {
		return nil, fmt.Errorf("parsing tool call params: %w", err)
	}
	if tc.Name == "" {
		return nil, fmt.Errorf("tool call params: missing name")
	}
	return &tc, nil
}

// AsInitialize extracts the client's initialize parameters. Missing params
// yield the zero value.
func (m *Message) AsInitialize() (*InitializeParams, error) {
	var p InitializeParams
	if len(m.Params) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(m.Params, &p); err != nil {
		return nil, fmt.Errorf("parsing initialize params: %w", err)
	}
	return &p, nil
}

// NewResponse builds a successful response for the request id.
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: orNull(id), Result: result}
}

// NewErrorResponse builds an error response. A nil id is sent as null, as
// required when the request id could not be determined.
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      orNull(id),
		Error:   &RPCError{Code: code, Message: message},
	}
}

// Encode serialises a response into a single frame.
func (r *Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// HasID reports whether the message carries a non-null id.
func (m *Message) HasID() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, nullID)
}

// IsRequest returns true if this is a JSON-RPC request (has method and id).
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.HasID()
}

// IsResponse returns true if this is a JSON-RPC response (has result or error).
func (m *Message) IsResponse() bool {
	return m.Result != nil || m.Error != nil
}

// IsNotification returns true if this is a JSON-RPC notification (has method, no id).
func (m *Message) IsNotification() bool {
	return m.Method != "" && !m.HasID()
}

func orNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}
