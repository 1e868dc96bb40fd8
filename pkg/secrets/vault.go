package secrets

import (
	"context"
	"encoding/json"
	"path"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds configuration for connecting to HashiCorp Vault
type VaultConfig struct {
	Address   string
	Token     string
	Path      string
	Namespace string
}

// Validate checks if the VaultConfig has all required fields set
func (v VaultConfig) Validate() error {
	if v.Address == "" {
		return errors.New("Vault address is required")
	}
	if v.Token == "" {
		return errors.New("Vault token is required")
	}
	if v.Path == "" {
		return errors.New("Vault path is required")
	}
	return nil
}

// CreateClient creates a Vault API client authenticated with the configured token.
func (v VaultConfig) CreateClient() (*api.Client, error) {
	if err := v.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Vault configuration")
	}

	config := api.DefaultConfig()
	config.Address = v.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}

	client.SetToken(v.Token)
	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}

	return client, nil
}

// VaultReader is the part of the Vault logical API used by VaultStore.
// *api.Logical implements it.
type VaultReader interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// VaultStore reads secrets stored under a common Vault path.
// Supports both KV v1 and KV v2 secret engines.
type VaultStore struct {
	logical VaultReader
	path    string
}

// NewVaultStore creates a store reading <path>/<name> for each secret.
//
// Parameters:
//   - logical: Vault logical API, usually client.Logical()
//   - path: The Vault path prefix (e.g., "secret/data" for KV v2)
func NewVaultStore(logical VaultReader, path string) *VaultStore {
	return &VaultStore{logical: logical, path: path}
}

// GetSecret reads the secret and returns its key/value data encoded as a JSON object.
func (v *VaultStore) GetSecret(ctx context.Context, name string) (string, error) {
	secretPath := path.Join(v.path, name)
	secret, err := v.logical.ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", secretPath)
	}

	if secret == nil || secret.Data == nil {
		return "", errors.Wrapf(ErrSecretNotFound, "no secret found at Vault path %q", secretPath)
	}

	data := secret.Data
	if nested, isV2 := secret.Data["data"]; isV2 {
		if nested == nil {
			// KV v2 keeps metadata of deleted versions
			return "", errors.Wrapf(ErrSecretNotFound, "secret at Vault path %q has been deleted", secretPath)
		}
		dataMap, ok := nested.(map[string]interface{})
		if !ok {
			return "", errors.Errorf("unexpected data format in KV v2 secret at %q", secretPath)
		}
		data = dataMap
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrapf(err, "unable to encode secret at Vault path %q", secretPath)
	}

	log.Debug().Str("vault_path", secretPath).Msg("Retrieved secret from Vault")
	return string(encoded), nil
}

// Name returns the store name
func (v *VaultStore) Name() string {
	return "Vault"
}
