// Package auth provides optional credential-based authentication for the
// monitoring API. Disabled unless STROBEGUARD_AUTH=true.
package auth

import (
	"errors"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Authenticator validates operator credentials and issues API tokens.
type Authenticator struct {
	enabled      bool
	username     string
	passwordHash []byte
	tokens       *TokenManager
	logger       *slog.Logger
}

// NewAuthenticator creates an authenticator from environment variables:
// STROBEGUARD_AUTH, STROBEGUARD_USERNAME, STROBEGUARD_PASSWORD (plaintext or
// a bcrypt hash). A nil logger falls back to slog.Default.
func NewAuthenticator(logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	enabled := os.Getenv("STROBEGUARD_AUTH") == "true"

	username := os.Getenv("STROBEGUARD_USERNAME")
	if username == "" {
		username = "operator"
	}

	password := os.Getenv("STROBEGUARD_PASSWORD")
	var passwordHash []byte

	if enabled {
		switch {
		case password == "":
			logger.Warn("authentication enabled but STROBEGUARD_PASSWORD is not set, all logins will fail")
		// A 60-byte $-prefixed value is already a bcrypt hash.
		case len(password) == 60 && password[0] == '$':
			passwordHash = []byte(password)
		default:
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				logger.Error("failed to hash configured password", "error", err)
			} else {
				passwordHash = hash
			}
		}
	}

	return &Authenticator{
		enabled:      enabled,
		username:     username,
		passwordHash: passwordHash,
		tokens:       NewTokenManager(logger),
		logger:       logger,
	}
}

// IsEnabled returns whether authentication is enabled.
func (a *Authenticator) IsEnabled() bool {
	return a.enabled
}

// Authenticate validates credentials and returns a signed token with its
// unix expiry.
func (a *Authenticator) Authenticate(username, password string) (string, int64, error) {
	if !a.enabled {
		return "", 0, ErrAuthDisabled
	}
	if username != a.username {
		a.logger.Info("login rejected", "username", username, "reason", "unknown user")
		return "", 0, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		a.logger.Info("login rejected", "username", username, "reason", "bad password")
		return "", 0, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Generate(username)
	if err != nil {
		return "", 0, err
	}
	a.logger.Debug("login succeeded", "username", username, "expires_at", expiresAt)
	return token, expiresAt.Unix(), nil
}

// ValidateToken validates an API token.
func (a *Authenticator) ValidateToken(token string) (*Claims, error) {
	return a.tokens.Validate(token)
}

// HashPassword creates a bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
