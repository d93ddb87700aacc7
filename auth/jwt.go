package auth

import (
	"errors"
	"fmt"
	"time"

	"fieldlog/models"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. ErrTokenExpired means the token parsed and its
// signature checked out but it is past its expiry; everything else that can
// go wrong during verification collapses into ErrTokenInvalid.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenKind selects the lifetime of an issued token. Access and refresh
// tokens share the same structure and signing secret; only the lifetime
// differs.
type TokenKind int

const (
	KindAccess TokenKind = iota
	KindRefresh
)

// Claims is the signed payload of a session token.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens. The signing secret and
// lifetimes are fixed at construction and never change while the process
// runs.
type TokenCodec struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec creates a codec with the given signing secret and the
// configured access/refresh lifetimes.
func NewTokenCodec(secretKey string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (c *TokenCodec) lifetime(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a token carrying the identity with issuedAt = now and
// expiresAt = now + lifetime(kind).
func (c *TokenCodec) Issue(identity models.Identity, kind TokenKind) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime(kind))),
			Issuer:    "fieldlog-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes the token, checks its signature and expiry, and returns
// the embedded identity. Claims are never trusted unless the signature
// verifies against the current secret.
func (c *TokenCodec) Verify(tokenString string) (models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, ErrTokenExpired
		}
		return models.Identity{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrTokenInvalid
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return models.Identity{}, ErrTokenInvalid
	}

	return models.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// ExtractToken extracts the token from the Authorization header.
// Expected format: "Bearer <token>"
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is empty")
	}
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", errors.New("invalid authorization header format")
	}
	return authHeader[7:], nil
}
