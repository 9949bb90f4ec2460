package a2a

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	// A2A-specific error codes.
	ErrCodeTaskNotFound      = -32001
	ErrCodeTaskNotCancelable = -32002
)

// A2A method names.
const (
	MethodSendMessage = "message/send"
	MethodGetTask     = "tasks/get"
	MethodCancelTask  = "tasks/cancel"
)

var (
	// ErrTaskNotFound is returned for unknown task IDs.
	ErrTaskNotFound = errors.New("a2a: task not found")

	// ErrTaskNotCancelable is returned when a task is already terminal.
	ErrTaskNotCancelable = errors.New("a2a: task is not cancelable")
)

// RPCError is a JSON-RPC error returned by a remote agent.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("a2a: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

// Is maps the A2A error codes back onto the package sentinels.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrTaskNotFound:
		return e.Code == ErrCodeTaskNotFound
	case ErrTaskNotCancelable:
		return e.Code == ErrCodeTaskNotCancelable
	}
	return false
}

// errorCode picks the JSON-RPC code for a handler error.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return ErrCodeTaskNotFound
	case errors.Is(err, ErrTaskNotCancelable):
		return ErrCodeTaskNotCancelable
	default:
		return ErrCodeInternal
	}
}

func writeResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeError(w, id, ErrCodeInternal, "marshal result: "+err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

func writeError(w http.ResponseWriter, id any, code int, message string) {
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
