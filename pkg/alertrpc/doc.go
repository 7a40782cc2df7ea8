// Package alertrpc is the gRPC contract for remote alert ingestion.
//
// The service is described by hand rather than generated: messages are
// plain Go structs carried by a JSON codec registered under the "json"
// content subtype. Client sets that subtype on every call, so callers dial
// with ordinary options.
//
//	service alertcore.v1.AlertService {
//	  rpc RaiseAlert(RaiseRequest) returns (RaiseResponse);
//	  rpc ChangeState(ChangeStateRequest) returns (ChangeStateResponse);
//	}
package alertrpc
