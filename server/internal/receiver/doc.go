// Package receiver implements the gRPC ingestion endpoint for alert-server.
//
// Receiver implements alertrpc.AlertServiceServer. RaiseAlert creates an
// alert through the manager; ChangeState appends a state event. Malformed
// ids, unknown levels and unknown states yield codes.InvalidArgument, and
// unknown alerts yield codes.NotFound.
//
// Authentication is handled by the auth interceptor configured on the gRPC
// server, not here.
package receiver
