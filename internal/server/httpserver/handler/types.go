package handler

import "time"

// CodeNotReady is returned by /ready while the session is not open.
const CodeNotReady = "FG-HTTP-5030"

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State           string `json:"state"`
	Ready           bool   `json:"ready"`
	Generation      uint64 `json:"generation"`
	Registered      bool   `json:"registered"`
	Revision        uint64 `json:"revision"`
	KeyCount        int    `json:"key_count"`
	BackoffAttempts int    `json:"backoff_attempts"`
}
