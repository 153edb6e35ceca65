package grpcext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/toolink/gantry/discovery"
	"github.com/toolink/gantry/extension"
)

func serverInterceptor(tag string, calls *[]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		*calls = append(*calls, tag)
		return handler(ctx, req)
	}
}

func TestUnaryServerChain(t *testing.T) {
	var calls []string
	reg := discovery.New()
	reg.Register("grpc.server",
		discovery.NewDescriptor("auth", "mw.Auth", serverInterceptor("auth", &calls)),
		discovery.NewDescriptor("audit", "mw.Audit", serverInterceptor("audit", &calls)),
	)

	opt, err := UnaryServerChain(context.Background(), "grpc.server", []string{"audit", "auth"},
		extension.WithSource(reg))
	require.NoError(t, err)
	require.NotNil(t, opt)
}

func TestChainOrderFollowsAllowList(t *testing.T) {
	var calls []string
	reg := discovery.New()
	reg.Register("grpc.server",
		discovery.NewDescriptor("auth", "mw.Auth", serverInterceptor("auth", &calls)),
		discovery.NewDescriptor("audit", "mw.Audit", serverInterceptor("audit", &calls)),
	)

	exts, err := chainExtensions(context.Background(), "grpc.server", []string{"audit", "auth"},
		[]extension.Option{extension.WithSource(reg)})
	require.NoError(t, err)
	require.Len(t, exts, 2)
	require.Equal(t, "audit", exts[0].Name())
	require.Equal(t, "auth", exts[1].Name())
}

func TestServerInterceptorRoundTrip(t *testing.T) {
	var calls []string
	ext := extension.NewExtension("auth", "mw.Auth", serverInterceptor("auth", &calls))

	interceptor, err := asServerInterceptor(ext)
	require.NoError(t, err)

	resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) { return "resp", nil })
	require.NoError(t, err)
	require.Equal(t, "resp", resp)
	require.Equal(t, []string{"auth"}, calls)
}

func TestServerChainAcceptsBareFunc(t *testing.T) {
	bare := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(ctx, req)
	}
	reg := discovery.New()
	reg.Register("grpc.server", discovery.NewDescriptor("bare", "mw.Bare", bare))

	opt, err := UnaryServerChain(context.Background(), "grpc.server", []string{"bare"},
		extension.WithSource(reg))
	require.NoError(t, err)
	require.NotNil(t, opt)
}

func TestServerChainRejectsNonInterceptor(t *testing.T) {
	reg := discovery.New()
	reg.Register("grpc.server", discovery.NewDescriptor("bogus", "mw.Bogus", "not an interceptor"))

	_, err := UnaryServerChain(context.Background(), "grpc.server", []string{"bogus"},
		extension.WithSource(reg))
	require.ErrorIs(t, err, ErrNotInterceptor)
	require.Contains(t, err.Error(), "bogus")
}

func TestChainFailsOnBrokenInterceptor(t *testing.T) {
	boom := errors.New("load failed")
	reg := discovery.New()
	reg.Register("grpc.server",
		discovery.NewLazyDescriptor("broken", "mw.Broken", func() (any, error) { return nil, boom }),
	)

	_, err := UnaryServerChain(context.Background(), "grpc.server", []string{"broken"},
		extension.WithSource(reg))
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "grpc.server")
}

func TestChainFailsOnMissingName(t *testing.T) {
	var calls []string
	reg := discovery.New()
	reg.Register("grpc.server",
		discovery.NewDescriptor("auth", "mw.Auth", serverInterceptor("auth", &calls)),
	)

	_, err := UnaryServerChain(context.Background(), "grpc.server", []string{"auth", "ratelimit"},
		extension.WithSource(reg))
	require.ErrorIs(t, err, ErrInterceptorMissing)
	require.Contains(t, err.Error(), "ratelimit")
}

func TestUnaryClientChain(t *testing.T) {
	interceptor := grpc.UnaryClientInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(ctx, method, req, reply, cc, opts...)
	})
	reg := discovery.New()
	reg.Register("grpc.client", discovery.NewDescriptor("retry", "mw.Retry", interceptor))

	opt, err := UnaryClientChain(context.Background(), "grpc.client", []string{"retry"},
		extension.WithSource(reg))
	require.NoError(t, err)
	require.NotNil(t, opt)
}

func TestClientChainRejectsNonInterceptor(t *testing.T) {
	reg := discovery.New()
	reg.Register("grpc.client", discovery.NewDescriptor("bogus", "mw.Bogus", 42))

	_, err := UnaryClientChain(context.Background(), "grpc.client", []string{"bogus"},
		extension.WithSource(reg))
	require.ErrorIs(t, err, ErrNotInterceptor)
}
