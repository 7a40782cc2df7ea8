package receiver

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alertcore/alertcore/pkg/alertrpc"
	"github.com/alertcore/alertcore/pkg/types"
	"github.com/alertcore/alertcore/server/internal/alerts"
	"github.com/alertcore/alertcore/server/internal/store"
)

// Receiver implements alertrpc.AlertServiceServer on top of the alert manager.
type Receiver struct {
	alertrpc.UnimplementedAlertServiceServer
	mgr *alerts.Manager
	log zerolog.Logger
}

// New creates a Receiver that forwards accepted requests to mgr.
func New(mgr *alerts.Manager, logger zerolog.Logger) *Receiver {
	return &Receiver{
		mgr: mgr,
		log: logger.With().Str("component", "receiver").Logger(),
	}
}

// RaiseAlert creates an alert. An empty level means INFO.
// Authentication is enforced by the gRPC server interceptor before this is called.
func (r *Receiver) RaiseAlert(ctx context.Context, req *alertrpc.RaiseRequest) (*alertrpc.RaiseResponse, error) {
	if strings.TrimSpace(req.Type) == "" {
		return nil, status.Error(codes.InvalidArgument, "type is required")
	}
	level := types.LevelInfo
	if req.Level != "" {
		var err error
		if level, err = types.ParseLevel(req.Level); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	a := r.mgr.Create(req.Type, level, req.Description, req.Content)

	r.log.Debug().
		Str("alert_id", a.ID.String()).
		Str("type", a.Type).
		Str("level", a.Level.String()).
		Msg("alert raised")

	return &alertrpc.RaiseResponse{Alert: a}, nil
}

// ChangeState appends a state event to an existing alert.
func (r *Receiver) ChangeState(ctx context.Context, req *alertrpc.ChangeStateRequest) (*alertrpc.ChangeStateResponse, error) {
	id, err := r.mgr.Resolve(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	state, err := types.ParseState(req.State)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	current, err := r.mgr.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	updated, err := r.mgr.ChangeState(current, state, req.Message)
	if err != nil {
		return nil, toStatus(err)
	}

	r.log.Debug().
		Str("alert_id", updated.ID.String()).
		Str("state", state.String()).
		Msg("alert state changed")

	return &alertrpc.ChangeStateResponse{Alert: updated}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrMalformedID):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
