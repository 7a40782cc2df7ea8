package auth

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/alertcore.v1.AlertService/RaiseAlert"}

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func callWithKey(t *testing.T, interceptor grpc.UnaryServerInterceptor, header, key string) (interface{}, error) {
	t.Helper()
	ctx := context.Background()
	if key != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(header, key))
	}
	return interceptor(ctx, nil, info, passHandler)
}

func TestAPIKeyInterceptor_PassThrough(t *testing.T) {
	cases := map[string]grpc.UnaryServerInterceptor{
		"mode none": APIKeyInterceptor("none", "x-api-key", ParseKeys("secret"), zerolog.Nop()),
		"empty key": APIKeyInterceptor("apikey", "x-api-key", ParseKeys(" , "), zerolog.Nop()),
		"mode unset": APIKeyInterceptor("", "x-api-key", ParseKeys("secret"), zerolog.Nop()),
	}
	for name, i := range cases {
		t.Run(name, func(t *testing.T) {
			// No key in context; still passes.
			res, err := i(context.Background(), nil, info, passHandler)
			require.NoError(t, err)
			assert.Equal(t, "ok", res)
		})
	}
}

func TestAPIKeyInterceptor_CorrectKey_Passes(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", ParseKeys("supersecret"), zerolog.Nop())
	res, err := callWithKey(t, i, "x-api-key", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestAPIKeyInterceptor_Rejections(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", ParseKeys("supersecret"), zerolog.Nop())

	_, err := callWithKey(t, i, "x-api-key", "wrong")
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "wrong key")

	_, err = callWithKey(t, i, "x-api-key", "supersecret-and-more")
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "key with matching prefix")

	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	_, err = i(ctx, nil, info, passHandler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "header absent")

	_, err = i(context.Background(), nil, info, passHandler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "no metadata")
}

func TestAPIKeyInterceptor_CustomHeader(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-alert-token", ParseKeys("mytoken"), zerolog.Nop())
	res, err := callWithKey(t, i, "x-alert-token", "mytoken")
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	_, err = callWithKey(t, i, "x-api-key", "mytoken")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

// --- key rotation ---

func TestParseKeys(t *testing.T) {
	assert.Equal(t, 0, ParseKeys("").Len())
	assert.Equal(t, 1, ParseKeys("one").Len())
	assert.Equal(t, 2, ParseKeys(" old , new ,").Len())
}

func TestKeySet_Match(t *testing.T) {
	ks := ParseKeys("old-key,new-key")
	assert.True(t, ks.Match("old-key"))
	assert.True(t, ks.Match("new-key"))
	assert.False(t, ks.Match("old-key,new-key"), "the raw list is not a key")
	assert.False(t, ks.Match(""))
	assert.False(t, ParseKeys("").Match(""))
}

func TestAPIKeyInterceptor_AcceptsEveryRotatedKey(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", ParseKeys("old-key, new-key"), zerolog.Nop())

	for _, key := range []string{"old-key", "new-key"} {
		res, err := callWithKey(t, i, "x-api-key", key)
		require.NoError(t, err, key)
		assert.Equal(t, "ok", res)
	}

	_, err := callWithKey(t, i, "x-api-key", "retired-key")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
