package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail parsing, signature or expiry checks
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager signing with secret (HS256)
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a new JWT token for a user
func (m *TokenManager) GenerateToken(userID, email string) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("JWT secret not initialized")
	}

	now := m.now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (m *TokenManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ObjectClaims authorize one storage operation on one key
type ObjectClaims struct {
	Key         string `json:"key"`
	Op          string `json:"op"` // put or get
	ContentType string `json:"ct,omitempty"`
	jwt.RegisteredClaims
}

// SignObject creates a short-lived signature for a disk object URL
func (m *TokenManager) SignObject(key, op, contentType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := ObjectClaims{
		Key:         key,
		Op:          op,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyObject checks a disk object signature for key and op
func (m *TokenManager) VerifyObject(sig, key, op string) (*ObjectClaims, error) {
	claims := &ObjectClaims{}
	if err := m.parse(sig, claims); err != nil {
		return nil, err
	}
	if claims.Key != key || claims.Op != op {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) parse(tokenString string, claims jwt.Claims) error {
	if len(m.secret) == 0 {
		return fmt.Errorf("JWT secret not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
