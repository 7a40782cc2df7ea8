package api

import "github.com/alertcore/alertcore/server/internal/notify"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State         string         `json:"state"` // "ok" | "attention"
	AlertCount    int            `json:"alert_count"`
	PendingCount  int            `json:"pending_count"`
	ByState       map[string]int `json:"by_state"`
	ByLevel       map[string]int `json:"by_level"`
	Descriptors   int            `json:"descriptor_count"`
	Notifications notify.Stats   `json:"notifications"`
	GeneratedAt   string         `json:"generated_at"` // RFC3339
}

// CreateAlertRequest is the body of POST /api/v1/alerts.
type CreateAlertRequest struct {
	Type        string `json:"type"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// ChangeStateRequest is the body of POST /api/v1/alerts/{id}/state.
type ChangeStateRequest struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
