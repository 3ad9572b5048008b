package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-userauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	id    string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }

func newTestTokenService(expirationHours int) auth.TokenService {
	return auth.NewTokenService(
		[]byte("test-signing-key"),
		expirationHours,
		"test-issuer",
		jwt.ClaimStrings{"test-audience"},
		nil,
	)
}

func TestTokenService_Generate(t *testing.T) {
	service := newTestTokenService(1)
	identity := testIdentity{id: "user-123", email: "user@example.com", role: "USER"}

	t.Run("round trips claims", func(t *testing.T) {
		token, err := service.Generate(identity, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject())
		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, "user@example.com", claims.Email())
		assert.Equal(t, "USER", claims.Role())
		assert.True(t, claims.HasRole("USER"))
		assert.False(t, claims.HasRole("ADMIN"))
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expires(), 5*time.Second)
	})

	t.Run("carries registered claims on the wire", func(t *testing.T) {
		token, err := service.Generate(identity, time.Hour)
		require.NoError(t, err)

		parsed := &auth.JWTClaims{}
		_, err = jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (any, error) {
			return []byte("test-signing-key"), nil
		})
		require.NoError(t, err)

		assert.Equal(t, "test-issuer", parsed.RegisteredClaims.Issuer)
		assert.Equal(t, jwt.ClaimStrings{"test-audience"}, parsed.RegisteredClaims.Audience)
		assert.NotEmpty(t, parsed.RegisteredClaims.ID)
		assert.NotNil(t, parsed.RegisteredClaims.IssuedAt)
		assert.NotNil(t, parsed.RegisteredClaims.ExpiresAt)
	})

	t.Run("rejects nil identity", func(t *testing.T) {
		_, err := service.Generate(nil, time.Hour)
		assert.Error(t, err)
	})
}

func TestTokenService_IssuePair(t *testing.T) {
	service := newTestTokenService(1)
	identity := testIdentity{id: "user-123", email: "user@example.com", role: "ADMIN"}

	pair, err := service.IssuePair(identity)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := service.Validate(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := service.Validate(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, access.Subject(), refresh.Subject())
	assert.Equal(t, access.Role(), refresh.Role())

	// Access token expires in about an hour, refresh in seven days
	assert.WithinDuration(t, time.Now().Add(time.Hour), access.Expires(), 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(auth.RefreshTokenTTL), refresh.Expires(), 5*time.Second)
}

func TestTokenService_Validate(t *testing.T) {
	service := newTestTokenService(1)
	identity := testIdentity{id: "user-123", email: "user@example.com", role: "USER"}

	t.Run("expired token fails with ErrTokenExpired", func(t *testing.T) {
		token, err := service.Generate(identity, -time.Minute)
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("token expiring one second ahead still validates", func(t *testing.T) {
		token, err := service.Generate(identity, time.Second)
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.NoError(t, err)
	})

	t.Run("tampered token is malformed", func(t *testing.T) {
		token, err := service.Generate(identity, time.Hour)
		require.NoError(t, err)

		_, err = service.Validate(token + "x")
		assert.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := auth.NewTokenService([]byte("other-key"), 1, "test-issuer", jwt.ClaimStrings{"test-audience"}, nil)
		token, err := other.Generate(identity, time.Hour)
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.Error(t, err)
	})

	t.Run("garbage input is malformed", func(t *testing.T) {
		_, err := service.Validate("not-a-token")
		assert.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("rejects non HMAC signing methods", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(raw)
		assert.Error(t, err)
	})
}

func TestTokenService_Decode(t *testing.T) {
	service := newTestTokenService(1)
	identity := testIdentity{id: "user-123", email: "user@example.com", role: "USER"}

	t.Run("decodes without signature check", func(t *testing.T) {
		other := auth.NewTokenService([]byte("other-key"), 1, "test-issuer", nil, nil)
		token, err := other.Generate(identity, time.Hour)
		require.NoError(t, err)

		// Validate refuses the foreign signature, Decode does not care
		_, err = service.Validate(token)
		require.Error(t, err)

		claims, err := service.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject())
		assert.Equal(t, "USER", claims.Role())
	})

	t.Run("decodes expired tokens for introspection", func(t *testing.T) {
		token, err := service.Generate(identity, -time.Hour)
		require.NoError(t, err)

		claims, err := service.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject())
	})

	t.Run("still rejects structural garbage", func(t *testing.T) {
		_, err := service.Decode("garbage")
		assert.Error(t, err)
	})
}
