// Package rpc implements the loopback HTTP/JSON-RPC daemon that
// multiplexes every Nyx database operation through a single exclusive
// lock, the analogue of original_source/src/rpc. The transport is plain
// net/http, grounded on sdn-server/internal/server/server.go's own
// stdlib-only HTTP server rather than a third-party framework.
package rpc

import (
	"encoding/json"
)

// Request is the wire request body, the analogue of rpc/message.rs's
// RpcRequest: method is "namespace.verb" (e.g. "user.new"), params are
// positional string arguments.
type Request struct {
	ID     int      `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// rpcError is the wire error payload, the analogue of RpcError.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is the wire response envelope, the analogue of RpcResponse<T>.
type response struct {
	ID     int       `json:"id"`
	Status string    `json:"status"`
	Error  *rpcError `json:"error,omitempty"`
	Result any       `json:"result,omitempty"`
}

// HTTPResponse is a fully rendered reply: status code and body.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// ok renders a 200 "ok"-shaped response body, the analogue of message::ok.
func ok(id int, result any) HTTPResponse {
	body, _ := json.MarshalIndent(response{ID: id, Status: "ok", Result: result}, "", "  ")
	return HTTPResponse{StatusCode: 200, Body: body}
}

// errResponse renders a 500 "error"-shaped response body, the analogue of
// message::err. The status code is preserved as a fixed 500 for source
// fidelity even for client errors like a missing method, per
// SPEC_FULL.md's resolved open question on HTTP status codes.
func errResponse(id, code int, message string) HTTPResponse {
	body, _ := json.Marshal(response{ID: id, Status: "error", Error: &rpcError{Code: code, Message: message}})
	return HTTPResponse{StatusCode: 500, Body: body}
}

