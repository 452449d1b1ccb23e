package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "trading-journal"

// ErrInvalidToken any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 tokens and checks admin credentials.
type Manager struct {
	secret        []byte
	ttl           time.Duration
	adminUsername string
	adminPassword string
	now           func() time.Time
}

func NewManager(secret, adminUsername, adminPassword string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:        []byte(secret),
		ttl:           ttl,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		now:           time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken token for username valid for the manager TTL.
func (m *Manager) GenerateToken(username string) (string, error) {
	now := m.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ValidateCredentials false while no admin password is configured.
func (m *Manager) ValidateCredentials(username, password string) bool {
	if m.adminPassword == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPassword)) == 1
	return userOK && passOK
}

func (m *Manager) PasswordConfigured() bool {
	return m.adminPassword != ""
}
