package shipper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alertcore/alertcore/agent/internal/config"
	"github.com/alertcore/alertcore/pkg/alertrpc"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
)

// Shipper buffers alert requests and forwards them to alert-server via gRPC.
// Ship is non-blocking; when the buffer is full the oldest request is
// evicted. Run must be called in a goroutine to drain the buffer and handle
// reconnection.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan *alertrpc.RaiseRequest
	dialFn dialFunc // injectable for tests
	log    zerolog.Logger

	// held is a request whose send failed transiently. It is retried before
	// anything in buf. Only Run touches it.
	held *alertrpc.RaiseRequest

	// outstanding counts requests accepted by Ship that are neither
	// delivered, discarded nor evicted.
	outstanding atomic.Int64
}

// dialFunc opens a gRPC connection. Tests inject a loopback dialer.
type dialFunc func(ctx context.Context, endpoint string, cfg config.AgentConfig) (*grpc.ClientConn, error)

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig, logger zerolog.Logger) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan *alertrpc.RaiseRequest, cfg.BufferSize),
		dialFn: defaultDial,
		log:    logger.With().Str("component", "shipper").Logger(),
	}
}

// Ship enqueues req. If the buffer is full the oldest entry is evicted to
// make room.
func (s *Shipper) Ship(req *alertrpc.RaiseRequest) {
	s.outstanding.Add(1)
	for {
		select {
		case s.buf <- req:
			return
		default:
		}
		select {
		case old := <-s.buf:
			s.outstanding.Add(-1)
			s.log.Warn().
				Str("type", old.Type).
				Int("buffer_cap", cap(s.buf)).
				Msg("buffer full, evicted oldest alert")
		default:
		}
	}
}

// Outstanding reports how many shipped requests are still waiting for
// delivery.
func (s *Shipper) Outstanding() int {
	return int(s.outstanding.Load())
}

// Run drains the buffer, sending requests to the server. It reconnects with
// exponential backoff when the connection is lost and blocks until ctx is
// cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.cfg.ServerEndpoint, s.cfg)
		if err != nil {
			wait := bo.next()
			s.log.Error().Err(err).
				Str("endpoint", s.cfg.ServerEndpoint).
				Dur("retry_in", wait).
				Msg("dial failed, will retry")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}

		s.log.Info().Str("endpoint", s.cfg.ServerEndpoint).Msg("connected")
		bo.reset()

		err = s.drain(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		s.log.Warn().Err(err).
			Str("endpoint", s.cfg.ServerEndpoint).
			Dur("retry_in", wait).
			Msg("connection lost, will reconnect")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// drain sends requests until a transient error occurs or ctx is cancelled.
func (s *Shipper) drain(ctx context.Context, conn *grpc.ClientConn) error {
	client := alertrpc.NewClient(conn)

	for {
		req := s.held
		s.held = nil
		if req == nil {
			select {
			case <-ctx.Done():
				return nil
			case req = <-s.buf:
			}
		}

		resp, err := s.send(ctx, client, req)
		if err != nil {
			if isPermanentError(err) {
				s.outstanding.Add(-1)
				s.log.Error().Err(err).Str("type", req.Type).Msg("permanent send error, discarding alert")
				continue
			}
			s.held = req
			return fmt.Errorf("send: %w", err)
		}

		s.outstanding.Add(-1)
		s.log.Debug().
			Str("type", req.Type).
			Str("alert_id", resp.Alert.ID.String()).
			Msg("alert delivered")
	}
}

func (s *Shipper) send(ctx context.Context, client *alertrpc.Client, req *alertrpc.RaiseRequest) (*alertrpc.RaiseResponse, error) {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	if s.cfg.ServerAuth.Mode == "apikey" && s.cfg.ServerAuth.KeyEnv != "" {
		sendCtx = metadata.AppendToOutgoingContext(sendCtx,
			s.cfg.ServerAuth.Header, s.cfg.ServerAuth.Key())
	}
	return client.RaiseAlert(sendCtx, req)
}

// isPermanentError reports gRPC errors that mean the request itself will
// never be accepted and should not be retried.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

// defaultDial opens a gRPC connection to endpoint with auth configured from cfg.
func defaultDial(ctx context.Context, endpoint string, cfg config.AgentConfig) (*grpc.ClientConn, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}
	return grpc.DialContext(ctx, endpoint, opts...) //nolint:staticcheck // DialContext kept for compat
}

// dialOptions builds the transport credentials for the server auth mode.
func dialOptions(cfg config.AgentConfig) ([]grpc.DialOption, error) {
	switch cfg.ServerAuth.Mode {
	case "mtls":
		creds, err := buildMTLSCreds(cfg.ServerAuth)
		if err != nil {
			return nil, fmt.Errorf("shipper: build mtls creds: %w", err)
		}
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}, nil

	default:
		// apikey rides in per-call metadata; none is plaintext for local dev.
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
	}
}

// buildMTLSCreds loads client certificate and optional CA from the auth config.
func buildMTLSCreds(auth config.AuthConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return credentials.NewTLS(tlsCfg), nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
