package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

// DemoToken is accepted as a full credential when demo mode is enabled. It
// maps to a fixed in-memory identity so the whole flow can run without a
// database or signup.
const DemoToken = "demo"

const issuer = "inspection-server"

// Claims carried in the access token.
type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey  []byte
	expiration time.Duration
	demoMode   bool
}

func NewJWTManager(secretKey string, expiration time.Duration, demoMode bool) *JWTManager {
	return &JWTManager{
		secretKey:  []byte(secretKey),
		expiration: expiration,
		demoMode:   demoMode,
	}
}

func (m *JWTManager) GenerateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies an access token. The literal demo token
// short-circuits to the demo identity when demo mode is on.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	if m.demoMode && tokenString == DemoToken {
		return &Claims{
			UserID: "demo-user",
			Email:  "demo@example.com",
			Role:   domain.RoleInspector,
		}, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "validate token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.WrapError(domain.ErrUnauthorized, "validate token", errors.New("invalid token"))
	}
	return claims, nil
}

// ExtractToken pulls the credential out of an "Authorization: Bearer <token>"
// header.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is empty")
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}
