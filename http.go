package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-userauth/middleware/jwtware"
	"github.com/goliatone/go-userauth/middleware/roleware"
)

// RouteAuthenticator wires the auth core into the request pipeline: it
// builds the authentication guard and the role guard as composable
// middleware stages and maps typed failures to HTTP responses.
type RouteAuthenticator struct {
	auth         *Auther
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryValidation)
	}

	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute is the authentication guard. It validates the bearer token
// and re-resolves the live principal before the handler runs; any failure
// terminates the request as unauthenticated.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   a.unauthenticatedHandler,
		TokenValidator: ValidatorAdapter(a.auth.TokenService()),
		Resolver:       ResolverAdapter(a.auth.IdentityResolver()),
		AuthScheme:     a.cfg.GetAuthScheme(),
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims, identity jwtware.Identity) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				ctx = WithClaimsContext(ctx, ac)
			}
			if id, ok := identity.(Identity); ok {
				ctx = WithIdentity(ctx, id)
			}
			return ctx
		},
	})
}

// RequireRoles is the role guard. Order it after ProtectedRoute; with no
// roles it admits any authenticated principal.
func (a *RouteAuthenticator) RequireRoles(roles ...UserRole) router.MiddlewareFunc {
	allowed := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed = append(allowed, string(role))
	}

	return roleware.New(roleware.Config{
		AllowedRoles: allowed,
		ContextKey:   a.cfg.GetContextKey(),
		ErrorHandler: func(c router.Context, err error) error {
			return a.ErrorHandler(c, ErrForbidden)
		},
	})
}

func (a *RouteAuthenticator) unauthenticatedHandler(c router.Context, err error) error {
	var richErr *errors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if errors.Is(err, ErrIdentityNotFound) {
		richErr = ErrIdentityNotFound
	} else if IsMalformedError(err) || err.Error() == jwtware.ErrJWTMissingOrMalformed.Error() {
		richErr = ErrTokenMalformed
	} else {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	return a.ErrorHandler(c, richErr)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	status := router.StatusUnauthorized
	code := ""
	message := "authentication required"

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		code = richErr.TextCode
		message = richErr.Message

		switch richErr.Category {
		case errors.CategoryConflict:
			status = router.StatusConflict
		case errors.CategoryValidation:
			status = router.StatusBadRequest
		case errors.CategoryNotFound:
			status = router.StatusNotFound
		case errors.CategoryInternal:
			status = router.StatusInternalServerError
			message = "internal error"
		}

		// A vanished token subject is an authentication failure, not a
		// lookup miss.
		if errors.Is(err, ErrIdentityNotFound) {
			status = router.StatusUnauthorized
		}

		if errors.Is(err, ErrForbidden) {
			status = router.StatusForbidden
		}
	}

	return c.JSON(status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// ValidatorAdapter bridges the package TokenService into the middleware
// validator interface.
func ValidatorAdapter(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(tokenString string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// ResolverAdapter bridges the package IdentityResolver into the middleware
// resolver interface.
func ResolverAdapter(r IdentityResolver) jwtware.IdentityResolver {
	return jwtware.IdentityResolverFunc(func(ctx context.Context, claims jwtware.AuthClaims) (jwtware.Identity, error) {
		ac, ok := claims.(AuthClaims)
		if !ok {
			return nil, ErrIdentityNotFound
		}

		identity, err := r.Resolve(ctx, ac)
		if err != nil {
			return nil, err
		}
		return identity, nil
	})
}
