package middleware

import (
	"context"
	"net/http"
	"strconv"
)

// ActorHeader carries the authenticated user id, set by the auth gateway in
// front of this service.
const ActorHeader = "X-Actor-ID"

const actorKey ctxKey = 2

// Principal stores the acting user id. A missing or malformed header leaves
// the request anonymous.
func Principal() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := strconv.ParseInt(r.Header.Get(ActorHeader), 10, 64); err == nil && id > 0 {
				r = r.WithContext(context.WithValue(r.Context(), actorKey, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorID returns the acting user, nil when anonymous.
func ActorID(r *http.Request) *int64 {
	if v, ok := r.Context().Value(actorKey).(int64); ok {
		return &v
	}
	return nil
}
