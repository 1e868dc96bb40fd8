// Package secrets provides read-only access to named secrets held by a managed secret store.
// Four backends are available: AWS Secrets Manager, HashiCorp Vault, a directory of files
// (Docker or Kubernetes secrets) and environment variables. The backend is picked from the
// service settings.
package secrets

import (
	"context"
	"os"

	"github.com/animalet/notes-api/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSecretNotFound is returned, possibly wrapped, when the store holds no secret by that name.
var ErrSecretNotFound = errors.New("secret not found")

// Store retrieves a secret value by name.
type Store interface {
	// GetSecret returns the raw secret string. Stores that keep structured data return it
	// encoded as a JSON object.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name returns a human-readable name for this store (for logging/debugging)
	Name() string
}

// New builds the store selected by s.SecretsBackend.
func New(ctx context.Context, s *settings.Settings) (Store, error) {
	switch s.SecretsBackend {
	case settings.SecretsBackendVault:
		cfg := VaultConfig{
			Address:   s.VaultAddress,
			Token:     s.VaultToken,
			Path:      s.VaultPath,
			Namespace: s.VaultNamespace,
		}
		client, err := cfg.CreateClient()
		if err != nil {
			return nil, err
		}
		log.Info().Str("address", cfg.Address).Str("path", cfg.Path).Msg("Using Vault secret store")
		return NewVaultStore(client.Logical(), cfg.Path), nil

	case settings.SecretsBackendFile:
		info, err := os.Stat(s.SecretsDir)
		if err != nil {
			return nil, errors.Wrapf(err, "error accessing secrets directory %q", s.SecretsDir)
		}
		if !info.IsDir() {
			return nil, errors.Errorf("secrets directory %q is not a directory", s.SecretsDir)
		}
		log.Info().Str("dir", s.SecretsDir).Msg("Using file secret store")
		return NewFileStore(s.SecretsDir), nil

	case settings.SecretsBackendEnv:
		log.Info().Msg("Using environment variable secret store")
		return NewEnvStore(nil), nil

	default:
		cfg := AWSConfig{
			Region:   s.AWSRegion,
			Endpoint: s.SecretsEndpoint(),
		}
		client, err := cfg.CreateClient(ctx)
		if err != nil {
			return nil, err
		}
		log.Info().Str("region", cfg.Region).Msg("Using AWS Secrets Manager secret store")
		return NewAWSStore(client), nil
	}
}
