package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qrmark/internal/entity"
)

// Claims represents JWT claims for authenticated requests. The subject is
// the username; the role is embedded so that authorization does not need a
// store lookup. The role is fixed at issuance and only refreshed by a new
// login.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager encapsulates JWT generation and validation.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(secret, issuer string, expiry time.Duration) (*Manager, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if expiry <= 0 {
		expiry = time.Hour * 24
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "qrmark"
	}
	return &Manager{
		secret: []byte(trimmed),
		issuer: issuer,
		expiry: expiry,
	}, nil
}

// Generate issues a signed token for the given username and role.
func (m *Manager) Generate(username, role string) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, errors.New("jwt manager is nil")
	}
	if strings.TrimSpace(username) == "" {
		return "", time.Time{}, errors.New("username must not be empty")
	}
	now := time.Now().UTC()
	expiry := now.Add(m.expiry)

	claims := Claims{
		Role: entity.NormalizeRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Parse validates the token signature and expiry and returns the claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, errors.New("jwt manager is nil")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Subject returns the token subject (the username) or "" when the token is
// invalid in any way. It never fails past this boundary.
func (m *Manager) Subject(tokenString string) string {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// RoleClaim returns the embedded role claim or "" when the token is invalid
// or carries none.
func (m *Manager) RoleClaim(tokenString string) string {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return ""
	}
	return claims.Role
}
