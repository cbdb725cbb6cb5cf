package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/artmarket-backend/api/responses"
	pkgAuth "github.com/angelmondragon/artmarket-backend/pkg/auth"
	"github.com/angelmondragon/artmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

const bearerScheme = "Bearer"

// Auth admits requests carrying a valid bearer token and puts the caller's
// identity on the context. Failures answer 401 with a bearer challenge.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var claims *pkgAuth.AccessTokenClaims
				if claims, err = pkgAuth.ParseAccessToken(cfg, token); err == nil {
					ctx = WithUser(ctx, claims.UserID, claims.Role)
					if logg != nil {
						ctx = logg.WithActor(ctx, claims.UserID, claims.Role.String())
					}
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				err = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, tokenRejection(err))
			}

			w.Header().Set("WWW-Authenticate", bearerScheme+` realm="artmarket"`)
			responses.WriteError(ctx, logg, w, err)
		})
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

func tokenRejection(err error) string {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "token expired"
	}
	return "invalid token"
}
