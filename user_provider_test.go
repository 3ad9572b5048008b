package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-userauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeUser(t *testing.T, email, password string, role auth.UserRole) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	return &auth.User{
		ID:           uuid.New(),
		Email:        auth.NormalizeEmail(email),
		Role:         role,
		PasswordHash: hash,
	}
}

func notFoundErr() error {
	return goerrors.New("record not found", goerrors.CategoryNotFound)
}

func TestUserProvider_VerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return identity", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		store.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "user@example.com", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "USER", identity.Role())
	})

	t.Run("email lookup is case normalized", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		store.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "  User@Example.COM ", "Secret123!")
		assert.NoError(t, err)
	})

	t.Run("wrong password returns the unified credentials error", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		store.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "user@example.com", "wrong-password")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("unknown email returns the same error as wrong password", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, notFoundErr())

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("soft deleted user cannot log in", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "gone@example.com", "Secret123!", auth.RoleUser)
		deletedAt := time.Now()
		user.DeletedAt = &deletedAt
		store.On("GetByEmail", ctx, "gone@example.com").Return(user, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.VerifyIdentity(ctx, "gone@example.com", "Secret123!")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestUserProvider_Resolve(t *testing.T) {
	ctx := context.Background()
	service := newTestTokenService(1)

	claimsFor := func(t *testing.T, identity auth.Identity) auth.AuthClaims {
		t.Helper()
		token, err := service.Generate(identity, time.Hour)
		require.NoError(t, err)
		claims, err := service.Validate(token)
		require.NoError(t, err)
		return claims
	}

	t.Run("resolves live principal by subject", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		store.On("GetByID", ctx, user.ID.String()).Return(user, nil)

		provider := auth.NewUserProvider(store)
		claims := claimsFor(t, auth.NewIdentityFromUser(user))

		identity, err := provider.Resolve(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
	})

	t.Run("resolution reflects role changes, not token claims", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		claims := claimsFor(t, auth.NewIdentityFromUser(user))

		// Promote after the token was issued
		promoted := *user
		promoted.Role = auth.RoleAdmin
		store.On("GetByID", ctx, user.ID.String()).Return(&promoted, nil)

		provider := auth.NewUserProvider(store)
		identity, err := provider.Resolve(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, "USER", claims.Role())
		assert.Equal(t, "ADMIN", identity.Role())
	})

	t.Run("idempotent for an unchanged record", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "user@example.com", "Secret123!", auth.RoleUser)
		store.On("GetByID", ctx, user.ID.String()).Return(user, nil)

		provider := auth.NewUserProvider(store)
		claims := claimsFor(t, auth.NewIdentityFromUser(user))

		first, err := provider.Resolve(ctx, claims)
		require.NoError(t, err)
		second, err := provider.Resolve(ctx, claims)
		require.NoError(t, err)

		assert.Equal(t, first.ID(), second.ID())
		assert.Equal(t, first.Email(), second.Email())
		assert.Equal(t, first.Role(), second.Role())
	})

	t.Run("missing record fails with identity not found", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "gone@example.com", "Secret123!", auth.RoleUser)
		claims := claimsFor(t, auth.NewIdentityFromUser(user))
		store.On("GetByID", ctx, user.ID.String()).Return(nil, notFoundErr())

		provider := auth.NewUserProvider(store)
		_, err := provider.Resolve(ctx, claims)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("soft deleted record fails with identity not found", func(t *testing.T) {
		store := new(MockCredentialStore)
		user := activeUser(t, "gone@example.com", "Secret123!", auth.RoleUser)
		claims := claimsFor(t, auth.NewIdentityFromUser(user))

		deletedAt := time.Now()
		deleted := *user
		deleted.DeletedAt = &deletedAt
		store.On("GetByID", ctx, user.ID.String()).Return(&deleted, nil)

		provider := auth.NewUserProvider(store)
		_, err := provider.Resolve(ctx, claims)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("nil claims fail", func(t *testing.T) {
		provider := auth.NewUserProvider(new(MockCredentialStore))
		_, err := provider.Resolve(ctx, nil)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}
