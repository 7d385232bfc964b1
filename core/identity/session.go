package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrNoSession = errors.New("no session")

// Session is the signed-in user as vouched for by the hosted auth provider.
// UserID is the identity subject id and doubles as the Profile primary key.
type Session struct {
	UserID   string
	Email    string
	Metadata map[string]interface{}
}

// Verifier turns a bearer access token into a Session.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// DisplayName picks a display name from the provider metadata, trying full_name, name,
// user_name, then given_name + family_name.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	for _, key := range []string{"full_name", "name", "user_name"} {
		if v := s.metaString(key); v != "" {
			return v
		}
	}
	return strings.TrimSpace(s.metaString("given_name") + " " + s.metaString("family_name"))
}

func (s *Session) metaString(key string) string {
	v, ok := s.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		str = fmt.Sprint(v)
	}
	return strings.TrimSpace(str)
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(%s, %s)", s.UserID, s.Email)
}
