package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type channelKey struct{}

var ChannelContextKey = channelKey{}

// deriveChannelFromAPIKey infers the calling channel from the API key prefix.
func deriveChannelFromAPIKey(key string) string {
	switch {
	case strings.HasPrefix(key, "mobile_"):
		return "mobile"
	case strings.HasPrefix(key, "web_"):
		return "web"
	case strings.HasPrefix(key, "partner_"):
		return "partner"
	default:
		return "api"
	}
}

// ChannelInterceptor is a gRPC unary interceptor that stamps the channel onto
// the context based on x-api-key.
func ChannelInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		keys := md.Get("x-api-key")
		channel := "api"
		if len(keys) > 0 {
			channel = deriveChannelFromAPIKey(keys[0])
		}

		ctx = context.WithValue(ctx, ChannelContextKey, channel)
		return handler(ctx, req)
	}
}

// FromChannel reports whether the context originated from the given channel.
func FromChannel(ctx context.Context, want string) bool {
	ch, ok := ctx.Value(ChannelContextKey).(string)
	return ok && ch == want
}

// GetChannel returns the current channel (default "api").
func GetChannel(ctx context.Context) string {
	ch, ok := ctx.Value(ChannelContextKey).(string)
	if !ok {
		return "api"
	}
	return ch
}
