package auth

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Fiber-native accessors for handlers that take a raw *fiber.Ctx instead of
// going through the router abstraction. The guard middleware stores the same
// values in Locals either way.

// ClaimsFromFiber returns the validated claims attached by the auth guard.
func ClaimsFromFiber(c *fiber.Ctx, keys ...string) (AuthClaims, error) {
	key := "user"
	if len(keys) > 0 && keys[0] != "" {
		key = keys[0]
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, goerrors.New("no session in request context", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenMalformed)
	}

	claims, ok := raw.(AuthClaims)
	if !ok {
		return nil, goerrors.New("session value has unexpected type", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenMalformed)
	}

	return claims, nil
}

// IdentityFromFiber returns the resolved principal attached by the auth
// guard. Prefer this over ClaimsFromFiber when authorizing: the identity
// reflects the live record, the claims only what was signed into the token.
func IdentityFromFiber(c *fiber.Ctx, keys ...string) (Identity, error) {
	key := "identity"
	if len(keys) > 0 && keys[0] != "" {
		key = keys[0]
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrIdentityNotFound
	}

	identity, ok := raw.(Identity)
	if !ok {
		return nil, ErrIdentityNotFound
	}

	return identity, nil
}

// NewFiberServer builds a fiber-backed router server with sane defaults for
// an auth-fronting API. Callers mount routes through srv.Router().
func NewFiberServer(appName string) router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName: appName,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				var fe *fiber.Error
				if goerrors.As(err, &fe) {
					code = fe.Code
				}
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		}))
	})
}
