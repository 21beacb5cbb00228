// Package secrets resolves credentials from the process environment or Azure
// Key Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a store holds no value for a name
var ErrNotFound = errors.New("secret not found")

// Source selects the backing store
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceVault       Source = "vault"
	// SourceAuto picks vault outside development when a vault is named
	SourceAuto Source = "auto"
)

// Store looks up a secret by name
type Store interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// EnvStore reads secrets from environment variables
type EnvStore struct{}

func (EnvStore) Lookup(_ context.Context, name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ResolverConfig configures NewResolver
type ResolverConfig struct {
	Source      Source
	VaultName   string
	Environment string
	CacheTTL    time.Duration
}

// Resolver reads deployment secrets. An environment variable that is set always
// wins over the store, so a single value can be overridden per deployment.
type Resolver struct {
	source Source
	store  Store
	logger *zap.Logger
}

// EffectiveSource resolves SourceAuto for an environment
func EffectiveSource(source Source, environment, vaultName string) Source {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "", "development", "local", "test":
		return SourceEnvironment
	}
	if vaultName == "" {
		return SourceEnvironment
	}
	return SourceVault
}

// NewResolver builds a resolver over the configured source
func NewResolver(cfg ResolverConfig, logger *zap.Logger) (*Resolver, error) {
	source := EffectiveSource(cfg.Source, cfg.Environment, cfg.VaultName)

	var store Store
	switch source {
	case SourceEnvironment:
		store = EnvStore{}
	case SourceVault:
		vault, err := NewVaultStore(cfg.VaultName, cfg.CacheTTL, logger)
		if err != nil {
			return nil, err
		}
		store = vault
	default:
		return nil, fmt.Errorf("unknown secret source: %q", cfg.Source)
	}

	logger.Info("secrets resolver initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment))
	return NewResolverWithStore(source, store, logger), nil
}

// NewResolverWithStore wraps an existing store
func NewResolverWithStore(source Source, store Store, logger *zap.Logger) *Resolver {
	return &Resolver{source: source, store: store, logger: logger}
}

// Source reports the effective source
func (r *Resolver) Source() Source {
	return r.source
}

// Resolve returns envName from the environment when set, else secretName from
// the store.
func (r *Resolver) Resolve(ctx context.Context, secretName, envName string) (string, error) {
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			r.logger.Debug("secret overridden by environment", zap.String("env", envName))
			return v, nil
		}
	}
	if r.source == SourceEnvironment {
		return EnvStore{}.Lookup(ctx, envName)
	}
	return r.store.Lookup(ctx, secretName)
}
