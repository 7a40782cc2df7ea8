// Package shipper forwards RaiseRequests to alert-server over gRPC
// (alertcore.v1.AlertService/RaiseAlert).
//
// Shipper.Ship() is non-blocking: requests go into an in-memory channel
// (default capacity 1000). When the buffer is full the oldest entry is
// evicted.
//
// Shipper.Run() drains the buffer in a loop, reconnecting with truncated
// exponential backoff (1s→60s, ±25% jitter) on connection or send errors.
// A request that fails transiently is retried first after reconnecting.
// Permanent gRPC errors (Unauthenticated, PermissionDenied, InvalidArgument)
// discard the request.
//
// Auth: mTLS via credentials.NewTLS(), API key via gRPC metadata header,
// or plaintext for local development.
package shipper
