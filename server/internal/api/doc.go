// Package api implements the HTTP REST API for alert-server.
//
// New(manager) returns an http.Handler that serves:
//
//	GET    /api/v1/health             alert counts by state and level, notification stats
//	GET    /api/v1/alerts             live alerts in creation order
//	GET    /api/v1/alerts?since=T     alerts created strictly after RFC3339 time T
//	GET    /api/v1/alerts?after=ID    alerts created after alert ID (404 if ID is not live)
//	POST   /api/v1/alerts             create an alert
//	GET    /api/v1/alerts/{id}        one alert
//	DELETE /api/v1/alerts/{id}        remove an alert, returning its last snapshot
//	POST   /api/v1/alerts/{id}/state  append a state event
//	GET    /api/v1/descriptors        registered descriptors
//	POST   /api/v1/descriptors        register a descriptor (409 if the type exists)
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. A malformed alert id is a 400, an unknown one a 404.
//
// MetricsHandler(manager) serves the Prometheus exposition for /metrics.
// No external HTTP framework is used.
package api
