package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// KeySet is the set of API keys the server accepts. More than one key may be
// active so that agents can move to a new key while the old one still works.
type KeySet struct {
	keys [][]byte
}

// ParseKeys splits a comma-separated key list. Surrounding whitespace and
// empty entries are dropped.
func ParseKeys(raw string) KeySet {
	var ks KeySet
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			ks.keys = append(ks.keys, []byte(k))
		}
	}
	return ks
}

// Len reports how many keys are accepted.
func (ks KeySet) Len() int { return len(ks.keys) }

// Match reports whether got equals one of the keys. Every key is compared,
// in constant time, whatever the outcome.
func (ks KeySet) Match(got string) bool {
	g := []byte(got)
	found := 0
	for _, k := range ks.keys {
		found |= subtle.ConstantTimeCompare(g, k)
	}
	return found == 1
}

// APIKeyInterceptor returns a unary interceptor that requires header to carry
// one of keys. With mode other than "apikey", or an empty KeySet, every call
// is let through. header must be lowercase, as gRPC normalises metadata keys.
func APIKeyInterceptor(mode, header string, keys KeySet, logger zerolog.Logger) grpc.UnaryServerInterceptor {
	log := logger.With().Str("component", "auth").Logger()
	enforce := mode == "apikey" && keys.Len() > 0
	if enforce {
		log.Info().Str("header", header).Int("keys", keys.Len()).Msg("api key authentication enabled")
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if enforce {
			if err := checkKey(ctx, header, keys); err != nil {
				log.Warn().Str("method", info.FullMethod).Err(err).Msg("call rejected")
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

func checkKey(ctx context.Context, header string, keys KeySet) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get(header)
	if len(vals) == 0 || !keys.Match(vals[0]) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}
