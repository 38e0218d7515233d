package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"svidanie/internal/config"
	"svidanie/internal/models"
)

func testAdminAuth(t *testing.T) *AdminAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAdminAuth(config.AdminConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
	})
}

func TestAdminLogin(t *testing.T) {
	auth := testAdminAuth(t)

	t.Run("Success", func(t *testing.T) {
		token, err := auth.Login("admin", "admin-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		subject, err := auth.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", subject)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := auth.Login("admin", "wrong")
		assert.ErrorIs(t, err, errInvalidCredentials)
	})

	t.Run("WrongUsername", func(t *testing.T) {
		_, err := auth.Login("root", "admin-pass")
		assert.ErrorIs(t, err, errInvalidCredentials)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := auth.Verify("not-a-token")
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, err := auth.Login("admin", "admin-pass")
		require.NoError(t, err)

		auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { auth.now = time.Now }()

		_, err = auth.Verify(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})
}

func TestAdminEndpoints(t *testing.T) {
	f := setupAPIFixture(t, defaultAPIConfig())

	resp := f.get(t, "/api/v1/admin/users", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.post(t, "/api/v1/admin/login", map[string]any{
		"username": "admin",
		"password": "wrong",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.post(t, "/api/v1/admin/login", map[string]any{
		"username": "admin",
		"password": "admin-pass",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.Token)

	resp = f.get(t, "/api/v1/admin/users", login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users struct {
		Users []models.User `json:"users"`
	}
	decodeBody(t, resp, &users)
	assert.Len(t, users.Users, 2)

	t.Run("Blacklist", func(t *testing.T) {
		resp := f.post(t, "/api/v1/admin/users/200/blacklist", map[string]any{"blacklisted": true}, login.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		user, err := f.db.GetUserByTelegramID(f.ctx, 200)
		require.NoError(t, err)
		assert.True(t, user.IsBlacklisted)
	})

	t.Run("BookingsByStatus", func(t *testing.T) {
		resp := f.get(t, "/api/v1/admin/bookings?status=pending_seller_confirmation", login.Token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
