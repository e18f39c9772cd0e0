package common

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie that carries the user identity.
const SessionName = "mydat"

const sessionUserKey = "user_id"

type userKey struct{}

// UserSession makes sure every request belongs to a user. Requests without a valid session
// cookie get a fresh uuid and the cookie is set on the response.
func UserSession(store sessions.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A decode error still yields a usable new session.
			sess, err := store.Get(r, SessionName)
			if err != nil {
				logger.Debug("discarding invalid session", "error", err)
			}

			userID, _ := sess.Values[sessionUserKey].(string)
			if userID == "" {
				userID = uuid.NewString()
				sess.Values[sessionUserKey] = userID
				if err := sess.Save(r, w); err != nil {
					logger.Error("failed to save session", "error", err)
					http.Error(w, "session error", http.StatusInternalServerError)
					return
				}
				logger.Debug("new user session", "user_id", userID)
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user id set by UserSession.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// NewCookieStore creates the session store used for user identity. sessions defaults to
// Secure cookies, which a plain HTTP server never gets back, so secure is explicit.
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.MaxAge(86400 * 30) // 30 days
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}
