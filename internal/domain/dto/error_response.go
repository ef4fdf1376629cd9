package dto

import "time"

// ErrorResponse is the standardized JSON error envelope returned by
// every failing endpoint.
type ErrorResponse struct {
	Message      string    `json:"error" example:"no data available"`
	ErrorDetails string    `json:"details,omitempty" example:"sql: connection refused"`
	Timestamp    time.Time `json:"timestamp"`
}

// Error implements the error interface so an ErrorResponse can travel
// through gin's error list.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}

// NewErrorResponse builds an ErrorResponse, capturing the inner error
// message when present.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
