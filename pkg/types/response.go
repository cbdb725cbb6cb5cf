package types

// Success is the body of every 2xx response.
type Success[T any] struct {
	Data T `json:"data"`
}

// Failure is the body of every error response.
type Failure struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the stable error code clients branch on. Details only
// appear for codes that allow them.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
