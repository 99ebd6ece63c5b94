package response

// APIResponse is the envelope returned by the invoice APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OKT returns a successful response with data.
func OKT[T any](message string, data T) *APIResponse[T] {
	return &APIResponse[T]{Success: true, Message: message, Data: data}
}

// ErrorT returns an error response with optional data the caller may reuse,
// e.g. the invoice that already exists for an order.
func ErrorT[T any](errMsg string, data T) *APIResponse[T] {
	return &APIResponse[T]{Success: false, Error: errMsg, Data: data}
}

// Err returns an error response without data.
func Err(errMsg string) *APIResponse[any] {
	return &APIResponse[any]{Success: false, Error: errMsg}
}
