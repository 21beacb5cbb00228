package config

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/juggajay/site-proof-sub006/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecrets map[string]string

func (f fakeSecrets) Resolve(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", secrets.ErrNotFound, secretName)
}

type failingSecrets struct{}

func (failingSecrets) Resolve(context.Context, string, string) (string, error) {
	return "", errors.New("vault unreachable")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "local-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "local-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTLDuration())
	assert.True(t, cfg.Outbox.Enabled)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 30*24*time.Hour, cfg.Outbox.RetentionDuration())
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("secret is required", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("production needs a long secret", func(t *testing.T) {
		cfg := &Config{App: AppConfig{Environment: "production"}, Auth: AuthConfig{JWTSecret: "short"}}
		assert.Error(t, cfg.Validate())

		cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("enabled outbox needs a schedule", func(t *testing.T) {
		cfg := &Config{Auth: AuthConfig{JWTSecret: "x"}, Outbox: OutboxConfig{Enabled: true}}
		assert.Error(t, cfg.Validate())
	})
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "localhost", User: "local", Password: "local"},
		Auth:     AuthConfig{JWTSecret: "from-env"},
	}
	err := applySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-MAIN-HOST":     "db.internal",
		"POSTGRES-MAIN-PASSWORD": "vault-password",
		"jwt-signing-secret":     "vault-secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "local", cfg.Database.User)
	assert.Equal(t, "vault-password", cfg.Database.Password)
	assert.Equal(t, "vault-secret", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Storage.CloudConnectionString)

	t.Run("unreachable vault aborts", func(t *testing.T) {
		assert.Error(t, applySecrets(context.Background(), &Config{}, failingSecrets{}))
	})
}

func TestLoadWithSecrets_EnvironmentSource(t *testing.T) {
	t.Setenv("JWT_SECRET", "local-secret")
	t.Setenv("SECRETS_SOURCE", "environment")

	cfg, err := LoadWithSecrets(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "local-secret", cfg.Auth.JWTSecret)
}
