// Package grpctransport provides the admission interceptor for gRPC
// services.
package grpctransport

import (
	"context"
	"path"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

// Caller identity and trust metadata keys. The host service resolves
// these during authentication and forwards them on the incoming context.
const (
	MetadataCallerID = "x-caller-id"
	MetadataTrust    = "x-caller-trust"
)

// InterceptorOption configures the admission interceptor.
type InterceptorOption func(*interceptorOptions)

type interceptorOptions struct {
	skipMethods map[string]bool
}

// WithSkipMethods marks full method names that bypass admission control,
// such as health probes.
func WithSkipMethods(methods ...string) InterceptorOption {
	return func(o *interceptorOptions) {
		for _, m := range methods {
			o.skipMethods[m] = true
		}
	}
}

// UnaryInterceptor returns a server interceptor enforcing admission
// control per request. Rejections surface as ResourceExhausted with a
// retry-after-seconds header.
func UnaryInterceptor(guard *core.Guard, opts ...InterceptorOption) grpc.UnaryServerInterceptor {
	options := &interceptorOptions{skipMethods: make(map[string]bool)}
	for _, opt := range opts {
		opt(options)
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if guard == nil {
			return handler(ctx, req)
		}
		service, endpoint := splitFullMethod(info.FullMethod)
		callerID, trust := callerMetadata(ctx)
		result, err := guard.CheckAdmission(ctx, &core.CheckRequest{
			Service:  service,
			Endpoint: endpoint,
			CallerID: callerID,
			CallerIP: peerAddr(ctx),
			Trust:    trust,
			Skip:     options.skipMethods[info.FullMethod],
		})
		if err != nil {
			// A malformed check never takes the request down with it.
			return handler(ctx, req)
		}
		setRateLimitHeader(ctx, result)
		if !result.Admitted {
			rejection := core.NewRejection(result)
			return nil, status.Error(codes.ResourceExhausted, rejection.Error())
		}
		return handler(ctx, req)
	}
}

// splitFullMethod maps "/pkg.v1.MenuService/ListMenus" to
// ("MenuService", "ListMenus") so policy tables key on bare service
// names.
func splitFullMethod(fullMethod string) (service, endpoint string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	endpoint = path.Base(fullMethod)
	service = path.Base(path.Dir(fullMethod))
	if i := strings.LastIndexByte(service, '.'); i >= 0 {
		service = service[i+1:]
	}
	return service, endpoint
}

func callerMetadata(ctx context.Context) (string, core.TrustLevel) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", core.TrustStandard
	}
	callerID := ""
	if values := md.Get(MetadataCallerID); len(values) > 0 {
		callerID = values[0]
	}
	trust := core.TrustStandard
	if values := md.Get(MetadataTrust); len(values) > 0 {
		trust, _ = core.ParseTrustLevel(values[0])
	}
	return callerID, trust
}

func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	return p.Addr.String()
}

func setRateLimitHeader(ctx context.Context, result *core.AdmissionResult) {
	md := metadata.Pairs(
		"x-ratelimit-limit", strconv.FormatInt(result.Limit, 10),
		"x-ratelimit-remaining", strconv.FormatInt(result.Remaining, 10),
	)
	if !result.Admitted {
		md.Set("retry-after-seconds", strconv.FormatInt(core.NewRejection(result).RetryAfterSeconds(), 10))
	}
	_ = grpc.SetHeader(ctx, md)
}
