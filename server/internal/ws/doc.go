// Package ws implements the WebSocket push channel for alert-server.
//
// Hub is a notify.Receiver: every count the alert manager announces is
// forwarded to all connected clients. Run re-sends the current count on a
// fixed interval and closes all connections when its context ends.
// ServeHTTP upgrades a request, sends the current count at once, then
// streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "alerts_available",
//	  "data":  { "count": 3, "generated_at": "2024-05-01T12:00:00Z" }
//	}
//
// The upgrader accepts all origins. The server mounts the hub at /ws/stream.
package ws
