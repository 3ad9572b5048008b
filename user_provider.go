package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserProvider resolves principals against the credential store. It backs
// both password verification at login and per-request identity resolution
// for the guards.
type UserProvider struct {
	store  CredentialStore
	logger Logger
}

var (
	_ IdentityResolver = (*UserProvider)(nil)
	_ IdentityVerifier = (*UserProvider)(nil)
)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store CredentialStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user by email and compare the password.
// Unknown email and wrong password produce the same error so login
// responses cannot enumerate registered addresses.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(identifier))
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !user.Active() {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return NewIdentityFromUser(user), nil
}

// Resolve re-fetches the principal named by the token subject. The role in
// the claims is ignored on purpose: a promotion, demotion, or soft delete
// must land on the very next request, not after the next token refresh.
func (u *UserProvider) Resolve(ctx context.Context, claims AuthClaims) (Identity, error) {
	if claims == nil || claims.Subject() == "" {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.GetByID(ctx, claims.Subject())
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during resolution")
	}

	if !user.Active() {
		return nil, ErrIdentityNotFound
	}

	return NewIdentityFromUser(user), nil
}
