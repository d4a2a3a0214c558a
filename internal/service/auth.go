package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// envAdminID is the synthetic user ID issued to the env-admin fallback.
// It never collides with xid-generated IDs (those are 20 characters).
const envAdminID = "admin"

// AdminFallback is the environment-configured admin identity: when no user
// row matches the login identifier, these credentials still authenticate as
// a virtual superadmin. This keeps a fresh database reachable.
type AdminFallback struct {
	Email        string
	Username     string
	Password     string
	PasswordHash string
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expiresIn"` // seconds
	User      model.UserRef `json:"user"`
}

// AuthService verifies credentials and issues tokens.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	admin     AdminFallback
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, tokens *auth.TokenService, admin AdminFallback, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		admin:     admin,
		logger:    logger,
	}
}

// Login authenticates an email-or-username identifier. An unknown
// identifier falls through to the env-admin check; every failure mode
// returns the same Unauthorized so callers can't probe which accounts
// exist.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperror.ValidationFailed("identifier", "email or username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return s.loginEnvAdmin(identifier, password)
		}
		return nil, err
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("login failed", slog.String("identifier", identifier))
		return nil, apperror.Unauthorized("invalid credentials")
	}

	return s.issue(auth.Identity{ID: user.ID, Role: user.Role}, user.Ref())
}

// loginEnvAdmin checks the identifier and password against the
// environment-configured admin credentials. The hash form is preferred;
// the plaintext form exists for local development.
func (s *AuthService) loginEnvAdmin(identifier, password string) (*LoginResult, error) {
	matches := strings.EqualFold(identifier, s.admin.Email) ||
		strings.EqualFold(identifier, s.admin.Username)
	if !matches {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	var ok bool
	switch {
	case s.admin.PasswordHash != "":
		verified, err := s.passwords.Verify(s.admin.PasswordHash, password)
		if err != nil {
			return nil, err
		}
		ok = verified
	case s.admin.Password != "":
		ok = subtle.ConstantTimeCompare([]byte(s.admin.Password), []byte(password)) == 1
	}
	if !ok {
		s.logger.Warn("env admin login failed", slog.String("identifier", identifier))
		return nil, apperror.Unauthorized("invalid credentials")
	}

	s.logger.Info("env admin logged in", slog.String("identifier", identifier))
	return s.issue(
		auth.Identity{ID: envAdminID, Role: model.RoleSuperAdmin},
		model.UserRef{
			ID:          envAdminID,
			Username:    s.admin.Username,
			DisplayName: s.admin.Username,
			Email:       s.admin.Email,
			Role:        model.RoleSuperAdmin,
		},
	)
}

func (s *AuthService) issue(id auth.Identity, ref model.UserRef) (*LoginResult, error) {
	token, err := s.tokens.Generate(id)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.Expiry().Seconds()),
		User:      ref,
	}, nil
}
