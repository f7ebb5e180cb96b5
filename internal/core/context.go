package core

import "context"

type contextKey string

const (
	ctxKeyClientIP contextKey = "client_ip"
	ctxKeySource   contextKey = "source"
)

// Sources of a conversion, stored with each Record.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
)

// ContextWithClientIP attaches the uploading client's address for the
// conversion record.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ContextWithSource marks where a conversion was started from.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ctxKeySource, source)
}

// ClientIPFromContext returns the client address, or "".
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// SourceFromContext returns the conversion source, defaulting to SourceCLI.
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySource).(string); ok {
		return v
	}
	return SourceCLI
}
