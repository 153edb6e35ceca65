// Package grpcext assembles gRPC interceptor chains from plugin
// namespaces. Each extension in the namespace provides a unary
// interceptor; the allow-list order becomes the chain order, so
// operators reorder middleware by editing a list of names instead of
// recompiling the server.
package grpcext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/toolink/gantry/extension"
)

// Custom errors
var (
	ErrNotInterceptor     = errors.New("extension value is not a grpc interceptor")
	ErrInterceptorMissing = errors.New("interceptor not found")
)

// UnaryServerChain loads the named extensions from a namespace and
// chains their values as unary server interceptors, in allow-list
// order. Load failures and absent names fail the chain: a server must
// not start with a silently broken interceptor.
func UnaryServerChain(ctx context.Context, namespace string, names []string, opts ...extension.Option) (grpc.ServerOption, error) {
	exts, err := chainExtensions(ctx, namespace, names, opts)
	if err != nil {
		return nil, err
	}

	chain := make([]grpc.UnaryServerInterceptor, 0, len(exts))
	for _, ext := range exts {
		interceptor, err := asServerInterceptor(ext)
		if err != nil {
			return nil, err
		}
		chain = append(chain, interceptor)
	}

	log.Info().Str("namespace", namespace).Int("count", len(chain)).Msg("unary server interceptor chain assembled")
	return grpc.ChainUnaryInterceptor(chain...), nil
}

// UnaryClientChain is the client-side counterpart of UnaryServerChain,
// producing a DialOption.
func UnaryClientChain(ctx context.Context, namespace string, names []string, opts ...extension.Option) (grpc.DialOption, error) {
	exts, err := chainExtensions(ctx, namespace, names, opts)
	if err != nil {
		return nil, err
	}

	chain := make([]grpc.UnaryClientInterceptor, 0, len(exts))
	for _, ext := range exts {
		interceptor, err := asClientInterceptor(ext)
		if err != nil {
			return nil, err
		}
		chain = append(chain, interceptor)
	}

	log.Info().Str("namespace", namespace).Int("count", len(chain)).Msg("unary client interceptor chain assembled")
	return grpc.WithChainUnaryInterceptor(chain...), nil
}

// chainExtensions loads the allow-listed extensions with the ordering
// and fail-fast behavior interceptor chains need: a name that matches
// nothing in the namespace is an error, not a shorter chain.
func chainExtensions(ctx context.Context, namespace string, names []string, opts []extension.Option) ([]*extension.Extension, error) {
	opts = append(append([]extension.Option(nil), opts...),
		extension.WithNameOrder(),
		extension.WithPropagateLoadErrors(),
	)
	mgr, err := extension.NewNamedManager(ctx, namespace, names, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading interceptors from namespace %q: %w", namespace, err)
	}

	if missing := mgr.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s in namespace %q", ErrInterceptorMissing, strings.Join(missing, ", "), namespace)
	}

	exts := mgr.Extensions()
	if len(exts) == 0 {
		log.Warn().Str("namespace", namespace).Msg("interceptor chain is empty")
	}
	return exts, nil
}

// asServerInterceptor converts an extension value into a unary server
// interceptor. Both the named grpc type and the bare function signature
// are accepted; a type switch matches the dynamic type exactly.
func asServerInterceptor(ext *extension.Extension) (grpc.UnaryServerInterceptor, error) {
	switch v := ext.Value().(type) {
	case grpc.UnaryServerInterceptor:
		return v, nil
	case func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error):
		return v, nil
	default:
		return nil, fmt.Errorf("%w: extension %s provided %T", ErrNotInterceptor, ext.Name(), v)
	}
}

// asClientInterceptor converts an extension value into a unary client
// interceptor.
func asClientInterceptor(ext *extension.Extension) (grpc.UnaryClientInterceptor, error) {
	switch v := ext.Value().(type) {
	case grpc.UnaryClientInterceptor:
		return v, nil
	case func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: extension %s provided %T", ErrNotInterceptor, ext.Name(), v)
	}
}
