package goAccount

import "context"

type clientIPContextKey struct{}
type baseURLContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is recorded on
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithBaseURL overrides Config.Links.BaseURL for links generated while
// serving ctx, typically the scheme and host of the inbound request.
func WithBaseURL(ctx context.Context, baseURL string) context.Context {
	return context.WithValue(ctx, baseURLContextKey{}, baseURL)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func baseURLFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	baseURL, _ := ctx.Value(baseURLContextKey{}).(string)
	return baseURL
}
