package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"svidanie/internal/config"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid token")
)

// AdminAuth выдает и проверяет JWT для панели управления.
// Пароль в конфиге хранится только как bcrypt-хэш.
type AdminAuth struct {
	cfg config.AdminConfig
	now func() time.Time
}

func NewAdminAuth(cfg config.AdminConfig) *AdminAuth {
	return &AdminAuth{cfg: cfg, now: time.Now}
}

// Login verifies credentials and issues a signed token.
func (a *AdminAuth) Login(username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) != 1 {
		// Хэшируем даже при неверном логине, чтобы не отличаться по времени.
		_ = bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password))
		return "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

// Verify parses a bearer token and returns the subject.
func (a *AdminAuth) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// Wrap protects admin-only handlers with a bearer token check.
func (a *AdminAuth) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := a.Verify(strings.TrimSpace(strings.TrimPrefix(header, prefix))); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}
