// Package middleware provides logging, tracing, metrics, token parsing and rate limiting middleware.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer is the iss claim of locally issued tokens.
	TokenIssuer = "techatlas-api"
	// TokenAudience is the aud claim of locally issued tokens.
	TokenAudience = "techatlas-client"
	// SupabaseAudience is the aud claim Supabase Auth puts on user tokens.
	SupabaseAudience = "authenticated"
)

var (
	ErrMissingToken   = errors.New("authorization required")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrInvalidIssuer  = errors.New("invalid token issuer or audience")
	ErrInvalidSubject = errors.New("invalid user ID in token")
)

// Claims is the verified identity carried by a bearer token.
type Claims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ParseToken verifies an HS256 token signed with secret. Tokens must carry a
// numeric subject and either the local issuer/audience pair or the Supabase
// audience.
func ParseToken(secret, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if !trustedIssuer(claims) {
		return nil, ErrInvalidIssuer
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidSubject
	}

	out := &Claims{UserID: uint(userID)}
	if jti, ok := claims["jti"].(string); ok {
		out.JTI = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func trustedIssuer(claims jwt.MapClaims) bool {
	aud, _ := claims.GetAudience()
	iss, _ := claims["iss"].(string)
	for _, a := range aud {
		if a == TokenAudience && iss == TokenIssuer {
			return true
		}
		if a == SupabaseAudience {
			return true
		}
	}
	return false
}

// IssueToken signs a local access token for userID.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"iat": now.Unix(),
		"exp": claims.ExpiresAt.Unix(),
		"jti": claims.JTI,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}
