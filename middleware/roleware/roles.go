// Package roleware gates requests on the principal's role. It runs after
// the jwtware guard, reads the resolved principal from the request context,
// and either forwards or terminates with a forbidden error. It performs no
// token work of its own: an unauthenticated request never reaches a passing
// state here.
package roleware

import (
	"errors"

	"github.com/goliatone/go-router"
)

var ErrForbidden = errors.New("insufficient role for this resource")

// RoleCarrier is anything stored in the request context that exposes a role.
// Both the resolved identity and raw claims satisfy it.
type RoleCarrier interface {
	Role() string
}

type Config struct {
	// AllowedRoles is the declared allowed set. Empty means unrestricted:
	// any authenticated principal passes.
	AllowedRoles []string

	// IdentityContextKey is the Locals key the auth guard used for the
	// resolved principal. Defaults to "identity".
	IdentityContextKey string

	// ContextKey is the fallback Locals key holding the validated claims.
	// Defaults to "user".
	ContextKey string

	ErrorHandler router.ErrorHandler
}

// New returns the role guard middleware. Deterministic and side-effect
// free: it only inspects context values populated upstream.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := getDefaultConfig(config...)
		return func(ctx router.Context) error {
			carrier := principalFromContext(ctx, cfg)
			if carrier == nil {
				return cfg.ErrorHandler(ctx, ErrForbidden)
			}

			if len(cfg.AllowedRoles) == 0 {
				return ctx.Next()
			}

			role := carrier.Role()
			for _, allowed := range cfg.AllowedRoles {
				if role == allowed {
					return ctx.Next()
				}
			}

			return cfg.ErrorHandler(ctx, ErrForbidden)
		}
	}
}

func principalFromContext(ctx router.Context, cfg Config) RoleCarrier {
	// Prefer the resolved principal: its role reflects the live record,
	// not whatever was signed into the token.
	if raw := ctx.Locals(cfg.IdentityContextKey); raw != nil {
		if carrier, ok := raw.(RoleCarrier); ok {
			return carrier
		}
	}

	if raw := ctx.Locals(cfg.ContextKey); raw != nil {
		if carrier, ok := raw.(RoleCarrier); ok {
			return carrier
		}
	}

	return nil
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.IdentityContextKey == "" {
		cfg.IdentityContextKey = "identity"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusForbidden).SendString(err.Error())
		}
	}

	return cfg
}
