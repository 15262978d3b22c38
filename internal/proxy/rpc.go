// Package proxy implements the per-agent MCP proxy: a process that sits on
// the stdio of an upstream JSON-RPC client and forwards to a spawned agent
// subprocess, injecting session context, enforcing a per-thread command
// queue, applying request timeouts, and supporting resume from a prior
// session's summary.
package proxy

import "encoding/json"

// Message is a JSON-RPC 2.0 envelope, used verbatim in both directions.
// Exactly one of (Method, Result, Error) is meaningful depending on
// whether this is a request/notification, a success response, or an
// error response.
type Message struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes used by the proxy itself (not forwarded
// from the child).
const (
	ErrCodeParse          = -32700
	ErrCodeRequestTimeout = -32001
	ErrCodeSessionClosed  = -32002
	ErrCodeChildExited    = -32003
)

// IsRequest reports whether m is a call expecting a response (has both a
// method and a non-nil id).
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification reports whether m is a one-way call (has a method but no
// id).
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// IsResponse reports whether m is a reply to a prior request (has an id
// but no method).
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != nil
}

// idString renders an id (which per JSON-RPC may be a string, number, or
// null) as a comparable Go string for use as a map key.
func idString(id json.RawMessage) string {
	return string(id)
}

// NewErrorResponse builds an error response carrying id, for cases where
// the proxy itself must answer upstream without involving the child.
func NewErrorResponse(id json.RawMessage, code int, message string) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// NewNotification builds a one-way JSON-RPC call with no id.
func NewNotification(method string, params interface{}) (*Message, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: "2.0", Method: method, Params: raw}, nil
}

// CancelledParams is the payload of a notifications/cancelled message.
type CancelledParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}
