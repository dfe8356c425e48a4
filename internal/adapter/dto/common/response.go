package common

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Info    string            `json:"info,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SuccessResponse wraps successful answers
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse represents a paginated list response
type ListResponse struct {
	Data   interface{} `json:"data"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
