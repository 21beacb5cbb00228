package secrets

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
	err    error
}

func (f *fakeVault) GetSecret(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	if f.err != nil {
		return azsecrets.GetSecretResponse{}, f.err
	}
	v, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	var resp azsecrets.GetSecretResponse
	resp.Value = &v
	return resp, nil
}

func TestEffectiveSource(t *testing.T) {
	tests := []struct {
		source      Source
		environment string
		vault       string
		want        Source
	}{
		{SourceAuto, "development", "kv-siteproof", SourceEnvironment},
		{SourceAuto, "production", "kv-siteproof", SourceVault},
		{SourceAuto, "staging", "", SourceEnvironment},
		{SourceVault, "development", "kv-siteproof", SourceVault},
		{SourceEnvironment, "production", "kv-siteproof", SourceEnvironment},
	}
	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.environment, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveSource(tt.source, tt.environment, tt.vault))
		})
	}
}

func TestVaultStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeVault{values: map[string]string{"jwt-signing-secret": "s3cret"}}
	store := newVaultStore(fake, time.Minute, zap.NewNop())
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	v, err := store.Lookup(ctx, "jwt-signing-secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	t.Run("cached within ttl", func(t *testing.T) {
		_, err := store.Lookup(ctx, "jwt-signing-secret")
		require.NoError(t, err)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("refetched after expiry", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := store.Lookup(ctx, "jwt-signing-secret")
		require.NoError(t, err)
		assert.Equal(t, 2, fake.calls)
	})

	t.Run("flush forgets values", func(t *testing.T) {
		store.Flush()
		_, err := store.Lookup(ctx, "jwt-signing-secret")
		require.NoError(t, err)
		assert.Equal(t, 3, fake.calls)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := store.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transport failure is not a miss", func(t *testing.T) {
		broken := newVaultStore(&fakeVault{err: errors.New("dial tcp: timeout")}, -1, zap.NewNop())
		_, err := broken.Lookup(ctx, "jwt-signing-secret")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	fake := &fakeVault{values: map[string]string{"jwt-signing-secret": "from-vault"}}
	r := NewResolverWithStore(SourceVault, newVaultStore(fake, -1, zap.NewNop()), zap.NewNop())

	v, err := r.Resolve(ctx, "jwt-signing-secret", "SITEPROOF_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)

	t.Setenv("SITEPROOF_TEST_JWT", "from-env")
	v, err = r.Resolve(ctx, "jwt-signing-secret", "SITEPROOF_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	t.Run("environment source ignores the store", func(t *testing.T) {
		env := NewResolverWithStore(SourceEnvironment, EnvStore{}, zap.NewNop())
		_, err := env.Resolve(ctx, "jwt-signing-secret", "SITEPROOF_TEST_UNSET")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
