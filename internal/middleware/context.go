package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxUser          ctxKey = "user"
)

// User is the authenticated caller extracted from a bearer token.
type User struct {
	ID      string
	IsStaff bool
}

func GetCorrelationID(ctx context.Context) string {
	if v := ctx.Value(ctxCorrelationID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithCorrelationID returns ctx carrying cid.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, cid)
}

// GetUser returns the authenticated user, if any.
func GetUser(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxUser).(User)
	return u, ok && u.ID != ""
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
