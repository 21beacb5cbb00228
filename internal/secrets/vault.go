package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const defaultCacheTTL = 5 * time.Minute

// secretClient is the part of *azsecrets.Client the store uses
type secretClient interface {
	GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

type cachedValue struct {
	value     string
	expiresAt time.Time
}

// VaultStore reads the latest version of secrets from Azure Key Vault and keeps
// them for a TTL. A zero TTL uses the default; a negative one disables caching.
type VaultStore struct {
	client secretClient
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]cachedValue
}

// NewVaultStore authenticates with DefaultAzureCredential (environment,
// managed identity or az CLI) against https://<vaultName>.vault.azure.net.
func NewVaultStore(vaultName string, ttl time.Duration, logger *zap.Logger) (*VaultStore, error) {
	if vaultName == "" {
		return nil, errors.New("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Key Vault store initialized", zap.String("vault_url", vaultURL))
	return newVaultStore(client, ttl, logger), nil
}

func newVaultStore(client secretClient, ttl time.Duration, logger *zap.Logger) *VaultStore {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &VaultStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		cache:  make(map[string]cachedValue),
	}
}

func (v *VaultStore) Lookup(ctx context.Context, name string) (string, error) {
	if v.ttl > 0 {
		v.mu.RLock()
		c, ok := v.cache[name]
		v.mu.RUnlock()
		if ok && v.now().Before(c.expiresAt) {
			return c.value, nil
		}
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		v.logger.Error("Key Vault lookup failed", zap.String("secret_name", name), zap.Error(err))
		return "", fmt.Errorf("failed to get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", ErrNotFound, name)
	}

	if v.ttl > 0 {
		v.mu.Lock()
		v.cache[name] = cachedValue{value: *resp.Value, expiresAt: v.now().Add(v.ttl)}
		v.mu.Unlock()
	}
	return *resp.Value, nil
}

// Flush drops every cached value
func (v *VaultStore) Flush() {
	v.mu.Lock()
	v.cache = make(map[string]cachedValue)
	v.mu.Unlock()
}
