package supabase

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/identity"
)

const leeway = 30 * time.Second

// Claims are the parts of a hosted-auth access token we rely on.
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email,omitempty"`
	Role         string                 `json:"role,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Verifier checks HS256 access tokens signed with the project's JWT secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(conf *core.Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if conf.Identity.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Identity.Issuer))
	}
	return &Verifier{
		secret: []byte(conf.Identity.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(_ context.Context, token string) (*identity.Session, error) {
	if token == "" || len(v.secret) == 0 {
		return nil, identity.ErrNoSession
	}

	claims := new(Claims)
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Wrapf(identity.ErrNoSession, "parsing token: %v", err)
	}

	// the subject doubles as the profile primary key
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrapf(identity.ErrNoSession, "token subject: %v", err)
	}
	if claims.Role == "anon" {
		return nil, errors.Wrap(identity.ErrNoSession, "anonymous token")
	}

	return &identity.Session{
		UserID:   sub.String(),
		Email:    core.CleanString(claims.Email, true /* lower */),
		Metadata: claims.UserMetadata,
	}, nil
}
