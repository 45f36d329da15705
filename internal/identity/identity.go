// Package identity is the authenticated-identity port: a stable user id plus
// display name for everything the service persists on behalf of a user.
package identity

import (
	"context"

	apperrors "quitflow/internal/common/errors"
)

// User is the authenticated identity.
type User struct {
	ID    string
	Name  string
	Email string
}

// DisplayName prefers the profile name, falling back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Provider yields the current user, failing fast when nobody is signed in.
type Provider interface {
	Current(ctx context.Context) (User, error)
}

type ctxKey struct{}

// WithUser attaches an authenticated user to the context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext extracts the user placed by WithUser.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}

// ContextProvider reads the user the API middleware placed on the request
// context.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) (User, error) {
	u, ok := FromContext(ctx)
	if !ok {
		return User{}, apperrors.NewNoSignedInUserError("no user on request context")
	}
	return u, nil
}

// Static always returns the configured user. Used in tests and local tooling.
type Static struct {
	User User
}

func (s Static) Current(context.Context) (User, error) {
	if s.User.ID == "" {
		return User{}, apperrors.NewNoSignedInUserError("static provider has no user")
	}
	return s.User, nil
}
