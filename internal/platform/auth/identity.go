package auth

import (
	"context"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Role hints accepted from the token's custom claim. Authorisation always uses the role stored on
// the user profile; the hint only seeds the profile on first sign-in.
const (
	RoleHintBuyer  = "buyer"
	RoleHintSeller = "seller"
)

// Identity captures the authenticated principal extracted from a Firebase ID token.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	RoleHint    string

	token *firebaseauth.Token
}

// Token exposes the decoded Firebase ID token associated with this identity.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

// SignupRole returns the role hint when it is one a user may pick for themselves, defaulting to buyer.
func (i *Identity) SignupRole() string {
	if i == nil {
		return RoleHintBuyer
	}
	switch strings.ToLower(strings.TrimSpace(i.RoleHint)) {
	case RoleHintSeller:
		return RoleHintSeller
	default:
		return RoleHintBuyer
	}
}

type contextKey string

const identityContextKey contextKey = "github.com/jamshaid11601/Emergent/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
