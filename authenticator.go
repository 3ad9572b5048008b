package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// RegisterPayload carries the data needed to create a new principal.
type RegisterPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

// AuthResult pairs the principal with its freshly issued tokens.
type AuthResult struct {
	Identity  Identity  `json:"identity"`
	TokenPair TokenPair `json:"tokens"`
}

// Auther orchestrates register, login, refresh, and logout against the
// credential store and token service.
type Auther struct {
	store               CredentialStore
	verifier            IdentityVerifier
	resolver            IdentityResolver
	tokenService        TokenService
	logger              Logger
	activitySink        ActivitySink
	bootstrapAdminEmail string
	phoneRegion         string
	useHashID           bool
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. A missing signing key is the
// single fatal startup condition; it fails construction, never a request.
func NewAuthenticator(store CredentialStore, opts Config) (*Auther, error) {
	if opts.GetSigningKey() == "" {
		return nil, ErrMissingSigningKey
	}

	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	provider := NewUserProvider(store)

	return &Auther{
		store:               store,
		verifier:            provider,
		resolver:            provider,
		tokenService:        tokenService,
		logger:              defLogger{},
		activitySink:        noopActivitySink{},
		bootstrapAdminEmail: NormalizeEmail(opts.GetBootstrapAdminEmail()),
		phoneRegion:         "US",
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithIdentityResolver overrides the resolver used for refresh and guards.
func (s *Auther) WithIdentityResolver(resolver IdentityResolver) *Auther {
	if resolver != nil {
		s.resolver = resolver
	}
	return s
}

// WithPhoneRegion sets the default region used to normalize phone numbers.
func (s *Auther) WithPhoneRegion(region string) *Auther {
	if region != "" {
		s.phoneRegion = region
	}
	return s
}

// WithDeterministicIDs derives registration UUIDs from the email address so
// repeated imports of the same dataset are idempotent.
func (s *Auther) WithDeterministicIDs(enabled bool) *Auther {
	s.useHashID = enabled
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// IdentityResolver returns the resolver used by this Authenticator, so
// guards can share the exact same re-fetch path.
func (s *Auther) IdentityResolver() IdentityResolver {
	return s.resolver
}

// Register creates a new principal with role USER, except the reserved
// bootstrap admin email which receives ADMIN. The plaintext password is
// hashed before the record is built; it never reaches the store.
func (s *Auther) Register(ctx context.Context, payload RegisterPayload) (*AuthResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	email := NormalizeEmail(payload.Email)

	if existing, err := s.store.GetByEmail(ctx, email); err == nil && existing.Active() {
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
			"error": ErrDuplicateEmail.Message,
		})
		return nil, ErrDuplicateEmail
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check for existing account")
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid password provided")
	}

	role := RoleUser
	if email == s.bootstrapAdminEmail {
		role = RoleAdmin
	}

	user := &User{
		Email:        email,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Phone:        s.normalizePhone(payload.Phone),
		PasswordHash: hash,
		Role:         role,
	}

	if s.useHashID {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := s.store.Register(ctx, user)
	if err != nil {
		// The duplicate check and the insert are not atomic; the unique
		// constraint closes the race. Surface it as the same conflict.
		if isConflictError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	identity := NewIdentityFromUser(created)

	pair, err := s.tokenService.IssuePair(identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRegisterSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"email": email,
		"role":  identity.Role(),
	})

	return &AuthResult{Identity: identity, TokenPair: pair}, nil
}

// Login verifies credentials and issues a token pair.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identity, err := s.verifier.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	pair, err := s.tokenService.IssuePair(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return &AuthResult{Identity: identity, TokenPair: pair}, nil
}

// Refresh validates the refresh token, re-resolves the live principal, and
// issues a fresh pair. Rotation is stateless: the old refresh token is not
// blacklisted and remains valid until its own expiry.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenService.Validate(refreshToken)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	identity, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, claims.Subject(), map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	// The fresh pair reflects the live record, so a role change issued
	// between tokens is carried forward here.
	pair, err := s.tokenService.IssuePair(identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, s.actorFromIdentity(identity), identity.ID(), nil)

	return &AuthResult{Identity: identity, TokenPair: pair}, nil
}

// Logout is a stateless acknowledgement. No server-side revocation exists;
// clients discard their tokens and the pair ages out naturally.
func (s *Auther) Logout(ctx context.Context) error {
	actor := ActorRef{Type: "unknown"}
	userID := ""
	if identity, ok := IdentityFromContext(ctx); ok {
		actor = s.actorFromIdentity(identity)
		userID = identity.ID()
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, actor, userID, nil)
	return nil
}

// Deactivate soft deletes a principal. The row survives but the account
// fails login, refresh, and identity resolution from the next request on;
// already-issued tokens die at the resolver, not at the token layer.
func (s *Auther) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}

	actor := ActorRef{Type: "unknown"}
	if identity, ok := IdentityFromContext(ctx); ok {
		actor = s.actorFromIdentity(identity)
	}
	s.emitAuthEvent(ctx, ActivityEventUserDeactivated, actor, id.String(), nil)

	return nil
}

func isConflictError(err error) bool {
	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryConflict
	}
	return false
}

func (s *Auther) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}

	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}
