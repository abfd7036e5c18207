package middleware

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestIssueAndParseToken(t *testing.T) {
	signed, issued, err := IssueToken(testSecret, 42, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)

	claims, err := ParseToken(testSecret, signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestParseToken_Rejects(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{"sub": "7", "iss": TokenIssuer, "aud": TokenAudience, "exp": exp}
	}

	tests := []struct {
		name  string
		token func() string
		want  error
	}{
		{"empty", func() string { return "" }, ErrMissingToken},
		{"malformed", func() string { return "malformed.token.here" }, ErrInvalidToken},
		{"expired", func() string {
			c := valid()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signClaims(t, jwt.SigningMethodHS256, c)
		}, ErrInvalidToken},
		{"wrong algorithm", func() string {
			return signClaims(t, jwt.SigningMethodHS512, valid())
		}, ErrInvalidToken},
		{"foreign issuer", func() string {
			c := valid()
			c["iss"] = "someone-else"
			return signClaims(t, jwt.SigningMethodHS256, c)
		}, ErrInvalidIssuer},
		{"non numeric subject", func() string {
			c := valid()
			c["sub"] = "abc"
			return signClaims(t, jwt.SigningMethodHS256, c)
		}, ErrInvalidSubject},
		{"zero subject", func() string {
			c := valid()
			c["sub"] = "0"
			return signClaims(t, jwt.SigningMethodHS256, c)
		}, ErrInvalidSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseToken_AcceptsSupabaseAudience(t *testing.T) {
	token := signClaims(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.Itoa(9),
		"aud": SupabaseAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
}
