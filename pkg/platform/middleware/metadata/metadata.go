package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyUserAgent struct{}
type contextKeyDevice struct{}

// ClientMetadata stores the client IP and User-Agent in the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgent retrieves the User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(contextKeyUserAgent{}).(string); ok {
		return ua
	}
	return ""
}

// GetDevice retrieves the coarse device label derived from the User-Agent.
func GetDevice(ctx context.Context) string {
	if d, ok := ctx.Value(contextKeyDevice{}).(string); ok {
		return d
	}
	return ""
}

// WithClientMetadata injects client IP, User-Agent and device label into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	ctx = context.WithValue(ctx, contextKeyDevice{}, DeviceLabel(userAgent))
	return context.WithValue(ctx, contextKeyUserAgent{}, userAgent)
}

// DeviceLabel reduces a User-Agent to "browser/os", with a "/mobile" suffix
// for handsets. Crawlers are "bot" and an empty header is "unknown".
func DeviceLabel(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "other"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "other"
	}
	label := browser + "/" + os
	if ua.Mobile() {
		label += "/mobile"
	}
	return label
}

// ClientIPFromRequest prefers proxy headers, then the connection address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
