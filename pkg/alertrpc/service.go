package alertrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alertcore/alertcore/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alertcore.v1.AlertService"

const (
	raiseAlertMethod  = "/" + ServiceName + "/RaiseAlert"
	changeStateMethod = "/" + ServiceName + "/ChangeState"
)

// RaiseRequest asks the server to create an alert. Level is a level name
// such as "CRITICAL".
type RaiseRequest struct {
	Type        string `json:"type"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// RaiseResponse carries the created alert.
type RaiseResponse struct {
	Alert types.Alert `json:"alert"`
}

// ChangeStateRequest appends a state event to an existing alert.
type ChangeStateRequest struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// ChangeStateResponse carries the updated alert.
type ChangeStateResponse struct {
	Alert types.Alert `json:"alert"`
}

// AlertServiceServer is implemented by the ingestion endpoint.
type AlertServiceServer interface {
	RaiseAlert(context.Context, *RaiseRequest) (*RaiseResponse, error)
	ChangeState(context.Context, *ChangeStateRequest) (*ChangeStateResponse, error)
}

// UnimplementedAlertServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedAlertServiceServer struct{}

func (UnimplementedAlertServiceServer) RaiseAlert(context.Context, *RaiseRequest) (*RaiseResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RaiseAlert not implemented")
}

func (UnimplementedAlertServiceServer) ChangeState(context.Context, *ChangeStateRequest) (*ChangeStateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangeState not implemented")
}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes AlertService to grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RaiseAlert", Handler: raiseAlertHandler},
		{MethodName: "ChangeState", Handler: changeStateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alertrpc",
}

func raiseAlertHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RaiseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AlertServiceServer).RaiseAlert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: raiseAlertMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AlertServiceServer).RaiseAlert(ctx, req.(*RaiseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func changeStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ChangeStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AlertServiceServer).ChangeState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: changeStateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AlertServiceServer).ChangeState(ctx, req.(*ChangeStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls AlertService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RaiseAlert creates an alert on the server.
func (c *Client) RaiseAlert(ctx context.Context, in *RaiseRequest, opts ...grpc.CallOption) (*RaiseResponse, error) {
	out := new(RaiseResponse)
	if err := c.cc.Invoke(ctx, raiseAlertMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeState transitions an alert on the server.
func (c *Client) ChangeState(ctx context.Context, in *ChangeStateRequest, opts ...grpc.CallOption) (*ChangeStateResponse, error) {
	out := new(ChangeStateResponse)
	if err := c.cc.Invoke(ctx, changeStateMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
