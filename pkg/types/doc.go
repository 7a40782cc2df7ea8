// Package types defines the alert model shared by the server, the gRPC
// contract and the forwarder agent.
//
// An Alert is an immutable snapshot: its Events slice is an append-only
// history whose first entry is always UNHANDLED at CreatedAt. Stores hand
// out clones, so a snapshot can be read without synchronization.
//
// AlertID is a time-ordered UUID (version 7). Its canonical string form is
// stable for the life of the process and round-trips through ParseAlertID.
package types
