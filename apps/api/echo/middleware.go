package echoapi

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/identity"
)

const (
	adminSecretHeader = "x-admin-secret"
	sessionCookieName = "sb-access-token"
	contextSessionKey = "session"
	bearerScheme      = "bearer"
)

// sessionMiddleware attaches the verified identity.Session, if any, to the context.
// A missing or invalid token is not an error here: each route decides what a missing session means.
func sessionMiddleware(verifier identity.Verifier, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if verifier == nil {
				return next(ctx)
			}
			token := accessToken(ctx)
			if token == "" {
				return next(ctx)
			}
			sess, err := verifier.Verify(ctx.Request().Context(), token)
			if err != nil {
				if errors.Cause(err) != identity.ErrNoSession {
					logger.Warn("verifying session", err)
				}
				return next(ctx)
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func accessToken(ctx echo.Context) string {
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, bearerScheme) {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := ctx.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func getContextSession(ctx echo.Context) *identity.Session {
	sess, _ := ctx.Get(contextSessionKey).(*identity.Session)
	return sess
}

func sessionRequiredMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if getContextSession(ctx) == nil {
			return errUnauthorized
		}
		return next(ctx)
	}
}

// adminSecretMiddleware guards operator endpoints with a shared secret header.
// An unset secret locks the endpoints.
func adminSecretMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			provided := ctx.Request().Header.Get(adminSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}
