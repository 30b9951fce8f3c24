// Package dto contains the request and response bodies of the HTTP API
package dto

// APIResponse is the envelope every JSON endpoint answers with
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorDetail is the error member of a failed APIResponse
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Timestamp string `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Version   string `json:"version" example:"1.0.0"`
	Database  string `json:"database" example:"up"`
	Cache     string `json:"cache" example:"disabled"`
}

// SetupResponse reports what a schema operation changed
type SetupResponse struct {
	AddedColumns []string `json:"added_columns"`
	AdminSeeded  bool     `json:"admin_seeded"`
}
