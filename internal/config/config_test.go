package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svidanie/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  name: svidanie
  environment: test
  version: 1.0.0
telegram:
  bot_token: "123:abc"
  mini_app_url: "https://t.me/svidanie_bot/app"
database:
  path: data/svidanie.db
admin:
  username: admin
  jwt_secret: secret
services:
  - id: 1
    name: Ужин
    category: offline
    price: 3000
    duration: 2
    currency: RUB
    is_active: true
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "svidanie", cfg.App.Name)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "Ужин", cfg.Services[0].Name)

	// Дефолты
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, models.DefaultPlatformFeePercent, cfg.Escrow.FeePercent)
	assert.Equal(t, 24*time.Hour, cfg.Admin.TokenTTL)
	assert.NotZero(t, cfg.API.RateLimit.RPS)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "456:def")
	path := writeConfig(t, `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
database:
  path: data/svidanie.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "456:def", cfg.Telegram.BotToken)
}

func TestValidate(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: data/svidanie.db
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "bot token")
	})

	t.Run("missing database path", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "database path")
	})

	t.Run("api requires jwt secret", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
database:
  path: data/svidanie.db
api:
  enabled: true
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "jwt secret")
	})

	t.Run("duplicate service ids", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
database:
  path: data/svidanie.db
services:
  - id: 1
    name: A
    category: offline
    price: 100
    duration: 1
  - id: 1
    name: B
    category: offline
    price: 200
    duration: 1
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "duplicate service ID")
	})
}

func TestValidateServices(t *testing.T) {
	err := ValidateServices([]models.Service{{ID: 0, Name: "X", Duration: 1}})
	assert.ErrorContains(t, err, "invalid ID 0")

	err = ValidateServices([]models.Service{{ID: 1, Name: "X", Duration: 0}})
	assert.ErrorContains(t, err, "non-positive duration")

	assert.NoError(t, ValidateServices(nil))
}
