package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const AuthCookieName = "auth_token"

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService verifies bearer tokens minted by the external auth provider
// with the shared HS256 secret. The subject claim is the principal id.
type TokenService struct {
	jwtSecret     []byte
	issuer        string
	jwtExpiry     time.Duration
	secureCookies bool
}

func NewTokenService(jwtSecret, issuer string, jwtExpiry time.Duration, secureCookies bool) *TokenService {
	return &TokenService{
		jwtSecret:     []byte(jwtSecret),
		issuer:        issuer,
		jwtExpiry:     jwtExpiry,
		secureCookies: secureCookies,
	}
}

// Issue mints a token for principalID. Used by operators in development;
// production tokens come from the auth provider.
func (s *TokenService) Issue(principalID string, ttl time.Duration) (string, time.Time, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return "", time.Time{}, &ValidationError{Field: "principal_id", Message: "principal id is required"}
	}
	if ttl <= 0 {
		ttl = s.jwtExpiry
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   principalID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Verify checks signature, expiry and issuer and returns the principal id.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Session verifies the token and also reports when it expires, for cookie lifetimes.
func (s *TokenService) Session(tokenString string) (string, time.Time, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

func (s *TokenService) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &claims, nil
}

func (s *TokenService) SetCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *TokenService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
