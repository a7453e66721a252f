package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth/jwt"
	"github.com/gokatarajesh/code-battle/internal/logging"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
)

type claimsKey struct{}

// ErrMissingToken is returned when a request carries no credentials.
var ErrMissingToken = errors.New("missing token")

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter for websocket upgrades.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", jwt.ErrInvalidToken
		}
		return parts[1], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// Authenticate resolves the claims of the caller.
func (s *Service) Authenticate(r *http.Request) (*jwt.Claims, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	return s.ValidateToken(token)
}

// RequireAuth rejects unauthenticated requests and injects the claims and a
// user-scoped logger into the request context.
func RequireAuth(authSvc *Service, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authSvc.Authenticate(r)
			switch {
			case errors.Is(err, ErrMissingToken):
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
				return
			case errors.Is(err, jwt.ErrExpiredToken):
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Token expired")
				return
			case err != nil:
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
				return
			}

			ctx := WithClaims(r.Context(), claims)
			reqLogger := logging.FromContext(ctx).With().Str("user_id", claims.UserID.String()).Logger()
			ctx = logging.IntoContext(ctx, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims injected by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}
