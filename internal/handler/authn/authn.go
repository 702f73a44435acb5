package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/service"
)

// SessionCookie carries the administrator session when no Authorization header is sent.
const SessionCookie = "admin_session"

type contextKey struct{}

// TokenFromRequest reads "Authorization: Bearer <token>", then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// retryAfterSeconds is advertised while the session collaborator is unreachable.
const retryAfterSeconds = "5"

// RequireAdmin rejects the request with 401 unless its token resolves to an
// administrator. A failed inspection answers 503 instead.
func RequireAdmin(auther service.Auther, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH] Validate identity before the channel is opened (or upgraded)
			identity, err := service.AuthorizeAdmin(r.Context(), auther, TokenFromRequest(r))
			if err != nil {
				if !errors.Is(err, model.ErrUnauthorized) {
					// [AUTH_UNAVAILABLE] the session was not judged; clients back off and retry
					logger.Warn("[AUTH] session inspection failed", slog.Any("err", err))
					w.Header().Set("Retry-After", retryAfterSeconds)
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin-notify"`)
				http.Error(w, model.ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			// [ENRICHMENT] Inject the identity into the context for downstream handlers
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFrom is a helper to extract the identity from context safely.
func IdentityFrom(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*model.Identity)
	return identity, ok
}

// Metadata describes the caller of r for the registry.
func Metadata(r *http.Request, transport string) model.ConnectMetadata {
	return model.ConnectMetadata{
		Transport: transport,
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
