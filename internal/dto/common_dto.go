package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ValidationErrorResponse carries per-field problems alongside the message.
type ValidationErrorResponse struct {
	Error   bool                `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type InvalidFieldsResponse struct {
	Error         bool     `json:"error"`
	Message       string   `json:"message"`
	InvalidFields []string `json:"invalid_fields"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	DB          string `json:"db"`
	Redis       string `json:"redis"`
	ModelLoaded bool   `json:"model_loaded"`
}
