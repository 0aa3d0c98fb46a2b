package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndVerify(t *testing.T) {
	tokens := NewTokenService("test-secret", "", time.Hour, false)

	token, expiresAt, err := tokens.Issue("student-1", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	subject, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "student-1", subject)

	_, _, err = tokens.Issue("  ", time.Minute)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTokenVerifyRejects(t *testing.T) {
	tokens := NewTokenService("test-secret", "desk", time.Hour, false)

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   "student-1",
		Issuer:    "desk",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"alg none":     sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		"expired": sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
			Subject: "student-1", Issuer: "desk", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"no expiry": sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
			Subject: "student-1", Issuer: "desk",
		}),
		"no subject": sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
			Issuer: "desk", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}),
		"wrong issuer": sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
			Subject: "student-1", Issuer: "elsewhere", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	subject, err := tokens.Verify(sign(jwt.SigningMethodHS256, []byte("test-secret"), valid))
	require.NoError(t, err)
	assert.Equal(t, "student-1", subject)
}

func TestTokenCookies(t *testing.T) {
	tokens := NewTokenService("test-secret", "", time.Hour, true)

	rec := httptest.NewRecorder()
	tokens.SetCookie(rec, "abc", time.Now().Add(time.Hour))
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, AuthCookieName, cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	rec = httptest.NewRecorder()
	tokens.ClearCookie(rec)
	cleared := rec.Result().Cookies()[0]
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
}
