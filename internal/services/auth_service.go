package services

import (
	"context"
	"errors"
	"strings"

	"github.com/isdelr/ender-auth/internal/apperr"
	"github.com/isdelr/ender-auth/internal/database"
	"github.com/isdelr/ender-auth/internal/models"
	"github.com/rs/zerolog/log"
)

// Client-facing messages. Login uses one message for unknown email and wrong
// password so the response never reveals which accounts exist.
const (
	MsgMissingRegisterFields = "Please provide all required fields"
	MsgMissingLoginFields    = "Please provide email and password"
	MsgUserExists            = "User already exists"
	MsgInvalidCredentials    = "Invalid credentials"
	MsgUserNotFound          = "User not found"
	MsgDatabaseUnavailable   = "Database unavailable"
	MsgDatabaseError         = "Database error"
)

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthResult is returned by a successful Register or Login.
type AuthResult struct {
	Token string
	User  models.PublicUser
}

// AuthServiceProvider defines the interface for the authentication flow.
type AuthServiceProvider interface {
	Register(ctx context.Context, name, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Me(ctx context.Context, userID string) (models.PublicUser, error)
}

// AuthService orchestrates registration, login and identity lookups.
// Every error it returns is an *apperr.Error.
type AuthService struct {
	users  UserServiceProvider
	tokens TokenIssuer
	events EventServiceProvider
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(users UserServiceProvider, tokens TokenIssuer, events EventServiceProvider) *AuthService {
	return &AuthService{users: users, tokens: tokens, events: events}
}

// Register creates an account and issues its first token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	if blank(name) || blank(email) || blank(password) {
		return AuthResult{}, apperr.New(apperr.Validation, MsgMissingRegisterFields)
	}

	_, err := s.users.FindByEmail(ctx, email, false)
	switch {
	case err == nil:
		log.Info().Str("email", email).Msg("User already exists")
		return AuthResult{}, apperr.New(apperr.Conflict, MsgUserExists)
	case !errors.Is(err, ErrUserNotFound):
		return AuthResult{}, storageError(err)
	}

	user, err := s.users.Create(ctx, name, email, password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return AuthResult{}, apperr.New(apperr.Conflict, MsgUserExists)
		}
		return AuthResult{}, storageError(err)
	}
	log.Info().Str("user_id", user.ID).Msg("User created successfully")
	s.record(ctx, models.EventUserRegistered, "info", "Account registered", &user.ID)

	return s.issue(user)
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if blank(email) || password == "" {
		return AuthResult{}, apperr.New(apperr.Validation, MsgMissingLoginFields)
	}

	user, err := s.users.FindByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info().Str("email", email).Msg("Login for unknown email")
			s.record(ctx, models.EventLoginFailure, "warn", "Login failed: unknown email", nil)
			return AuthResult{}, apperr.New(apperr.Unauthorized, MsgInvalidCredentials)
		}
		return AuthResult{}, storageError(err)
	}

	if !s.users.MatchPassword(user, password) {
		log.Info().Str("user_id", user.ID).Msg("Invalid password")
		s.record(ctx, models.EventLoginFailure, "warn", "Login failed: invalid password", &user.ID)
		return AuthResult{}, apperr.New(apperr.Unauthorized, MsgInvalidCredentials)
	}

	log.Info().Str("user_id", user.ID).Msg("Login successful")
	s.record(ctx, models.EventLoginSuccess, "info", "Login succeeded", &user.ID)
	return s.issue(user)
}

// Me resolves the public projection of an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.PublicUser{}, apperr.New(apperr.NotFound, MsgUserNotFound)
		}
		return models.PublicUser{}, storageError(err)
	}
	return user.Public(), nil
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.Unexpected, "Failed to generate token", err)
	}
	return AuthResult{Token: token, User: user.Public()}, nil
}

// record writes an audit event. Failures are logged and never fail the request.
func (s *AuthService) record(ctx context.Context, eventType, level, message string, userID *string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

func storageError(err error) error {
	if errors.Is(err, database.ErrUnavailable) {
		return apperr.Wrap(apperr.Storage, MsgDatabaseUnavailable, err)
	}
	return apperr.Wrap(apperr.Storage, MsgDatabaseError, err)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
