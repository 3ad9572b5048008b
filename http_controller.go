package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterAuthRoutes mounts the token issuance endpoints plus a protected
// profile route that exercises both guards.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")

	app.Get(controller.Routes.Me, controller.Me,
		controller.HTTP.ProtectedRoute(),
	).SetName("auth.me")

	// Admin gated: the auth guard must run before the role guard so an
	// unauthenticated request fails 401 without any role evaluation.
	app.Delete(controller.Routes.Users+"/:id", controller.UserDelete,
		controller.HTTP.ProtectedRoute(),
		controller.HTTP.RequireRoles(RoleAdmin),
	).SetName("auth.users.delete")
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Refresh  string
	Logout   string
	Me       string
	Users    string
}

type AuthController struct {
	Logger       Logger
	Auther       *Auther
	HTTP         *RouteAuthenticator
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/auth/register",
			Login:    "/auth/login",
			Refresh:  "/auth/refresh",
			Logout:   "/auth/logout",
			Me:       "/auth/me",
			Users:    "/auth/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.HTTP.ErrorHandler
	}

	return c
}

func WithAuthenticator(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRouteAuthenticator(http *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.HTTP = http
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	result, err := a.Auther.Register(ctx.Context(), *payload)
	if err != nil {
		a.Logger.Error("Register error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, authResponse(result))
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, authResponse(result))
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	result, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, authResponse(result))
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	if err := a.Auther.Logout(ctx.Context()); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// Me returns the live principal attached by the auth guard.
func (a *AuthController) Me(ctx router.Context) error {
	identity, ok := GetRouterIdentity(ctx, "")
	if !ok {
		return a.ErrorHandler(ctx, ErrIdentityNotFound)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": identityPayload(identity),
	})
}

// UserDelete deactivates a principal. Reached only through the stacked
// guards: authenticated, resolved, and carrying the ADMIN role.
func (a *AuthController) UserDelete(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.badRequest(ctx, err)
	}

	if err := a.Auther.Deactivate(ctx.Context(), id); err != nil {
		a.Logger.Error("UserDelete error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(router.StatusNoContent)
}

func (a *AuthController) badRequest(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]string{
		"error": err.Error(),
	})
}

func authResponse(result *AuthResult) map[string]any {
	return map[string]any{
		"user":   identityPayload(result.Identity),
		"tokens": result.TokenPair,
	}
}

func identityPayload(identity Identity) any {
	if ui, ok := identity.(UserIdentity); ok && ui.User() != nil {
		return ui.User()
	}

	return map[string]string{
		"id":    identity.ID(),
		"email": identity.Email(),
		"role":  identity.Role(),
	}
}
