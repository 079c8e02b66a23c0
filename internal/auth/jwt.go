package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")
var ErrExpiredToken = errors.New("token has expired")

const TokenTypeAccess = "access"

// TokenTypeRecovery marks the short-lived session handed out by the
// password-reset link; it is only good for completing a password reset.
const TokenTypeRecovery = "recovery"

type JWTConfig struct {
	SecretKey        string
	AccessDuration   time.Duration
	RecoveryDuration time.Duration
	Issuer           string
}

type Claims struct {
	OwnerID   string `json:"owner_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	config JWTConfig
}

func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config}
}

func (m *JWTManager) GenerateAccessToken(ownerID, email string) (string, error) {
	return m.generate(ownerID, email, TokenTypeAccess, m.config.AccessDuration)
}

func (m *JWTManager) GenerateRecoveryToken(ownerID, email string) (string, error) {
	return m.generate(ownerID, email, TokenTypeRecovery, m.config.RecoveryDuration)
}

func (m *JWTManager) generate(ownerID, email, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		OwnerID:   ownerID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
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

func (m *JWTManager) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *JWTManager) ValidateRecovery(tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRecovery {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
