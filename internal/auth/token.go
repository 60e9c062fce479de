package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims carried by API tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 API tokens.
type TokenManager struct {
	secretKey []byte
	expiry    time.Duration
}

// NewTokenManager creates a token manager from STROBEGUARD_JWT_SECRET and
// STROBEGUARD_JWT_EXPIRY. Without a configured secret a random one is
// generated, which invalidates tokens across restarts (dev mode). A nil
// logger falls back to slog.Default.
func NewTokenManager(logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}

	secret := os.Getenv("STROBEGUARD_JWT_SECRET")
	if secret == "" {
		randomBytes := make([]byte, 32)
		rand.Read(randomBytes)
		secret = hex.EncodeToString(randomBytes)
		logger.Warn("STROBEGUARD_JWT_SECRET not set, using an ephemeral secret; tokens will not survive restarts")
	}

	expiry := 24 * time.Hour
	if exp := os.Getenv("STROBEGUARD_JWT_EXPIRY"); exp != "" {
		if d, err := time.ParseDuration(exp); err != nil {
			logger.Warn("invalid STROBEGUARD_JWT_EXPIRY, keeping default", "value", exp, "default", expiry)
		} else {
			expiry = d
		}
	}

	return &TokenManager{
		secretKey: []byte(secret),
		expiry:    expiry,
	}
}

// Generate creates a new token for a user.
func (m *TokenManager) Generate(username string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.expiry)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "strobeguard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate parses and validates a token, returning its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
