package middleware

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName     = "help-center"
	visitorIDKey    = "visitor_id"
	sessionMaxAge   = 365 * 24 * 60 * 60
	generatedKeyLen = 32
)

type visitorCtxKey struct{}

// Visitors assigns every browser a stable visitor id kept in a signed cookie.
type Visitors struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewVisitors creates the cookie middleware. An empty secret gets a random
// key, so cookies do not survive a restart.
func NewVisitors(secret string, secure bool, logger *slog.Logger) *Visitors {
	if logger == nil {
		logger = slog.Default()
	}

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, generatedKeyLen)
		_, _ = rand.Read(key)
		logger.Warn("SESSION_SECRET not set, visitor cookies will reset on restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Visitors{store: store, logger: logger}
}

// Middleware loads or issues the visitor id and stores it in the request context.
func (v *Visitors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A tampered or stale cookie yields a fresh session along with the error.
		session, err := v.store.Get(r, sessionName)
		if err != nil {
			v.logger.Debug("discarding invalid visitor cookie", "error", err)
		}

		id, _ := session.Values[visitorIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			session.Values[visitorIDKey] = id
			if err := session.Save(r, w); err != nil {
				v.logger.Error("failed to save visitor session", "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), id)))
	})
}

// WithVisitorID returns a copy of ctx carrying id.
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorCtxKey{}, id)
}

// VisitorID returns the visitor id stored by Middleware, or "".
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorCtxKey{}).(string)
	return id
}
