// Package requestctx threads a per-request correlation ID and the
// client's address through context.Context, the way the teacher's
// tenant package attached a resolved tenant to the request context.
package requestctx

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "lowdown-request-id"

// Info is what's attached to every request's context by Middleware.
type Info struct {
	RequestID string
	ClientIP  string
}

// FromContext returns the Info attached by Middleware, if any.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(requestIDKey).(Info)
	return info, ok
}

// RequestID is a convenience accessor returning "" if none is set.
func RequestID(ctx context.Context) string {
	info, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return info.RequestID
}

// Middleware assigns a fresh correlation ID to every inbound request
// (google/uuid, the same way the rest of the corpus generates trace
// and span identifiers) and records the caller's address, then stores
// both in the request's context before calling next.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := Info{
			RequestID: uuid.NewString(),
			ClientIP:  clientIP(r),
		}
		w.Header().Set("x-lowdown-request-id", info.RequestID)

		ctx := context.WithValue(r.Context(), requestIDKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
