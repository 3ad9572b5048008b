package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// DefaultBootstrapAdminEmail is the single reserved address that registers
// with the ADMIN role. Override it through SimpleConfig for real deployments.
const DefaultBootstrapAdminEmail = "admin@example.com"

// SimpleConfig is a concrete Config. The signing key is loaded once at
// startup and treated as immutable; rotating it means building a new
// authenticator, never mutating a live one.
type SimpleConfig struct {
	SigningKey          string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod       string   `json:"signing_method" koanf:"signing_method"`
	ContextKey          string   `json:"context_key" koanf:"context_key"`
	TokenExpiration     int      `json:"token_expiration" koanf:"token_expiration"`
	TokenLookup         string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme          string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer              string   `json:"issuer" koanf:"issuer"`
	Audience            []string `json:"audience" koanf:"audience"`
	BootstrapAdminEmail string   `json:"bootstrap_admin_email" koanf:"bootstrap_admin_email"`
}

var _ Config = SimpleConfig{}

// Validate enforces the fatal-at-startup conditions. A missing signing key
// must stop the process before it serves a single request.
func (c SimpleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required),
		validation.Field(&c.TokenExpiration, validation.Min(1)),
	)
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

// GetTokenExpiration is the access token TTL in hours
func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration == 0 {
		return 1
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization"
	}
	return c.TokenLookup
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetBootstrapAdminEmail() string {
	if c.BootstrapAdminEmail == "" {
		return DefaultBootstrapAdminEmail
	}
	return c.BootstrapAdminEmail
}
