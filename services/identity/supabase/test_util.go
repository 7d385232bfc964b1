package supabase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core/identity"
)

// IssueToken signs an access token the way the hosted auth service does. For tests and local tooling.
func IssueToken(secret string, sess identity.Session, ttl time.Duration, issuer ...string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:        sess.Email,
		Role:         "authenticated",
		UserMetadata: sess.Metadata,
	}
	if len(issuer) > 0 {
		claims.Issuer = issuer[0]
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}
