package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore reads secrets from files in a directory, one file per secret.
// Useful for Docker secrets, Kubernetes secrets, or local development.
// The file contents are trimmed of whitespace.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// GetSecret reads <dir>/<name>. Names that would escape dir are rejected.
func (f *FileStore) GetSecret(_ context.Context, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return "", errors.Errorf("invalid secret name %q", name)
	}

	secretPath := filepath.Join(f.dir, name)
	content, err := os.ReadFile(secretPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrSecretNotFound, "no secret file %q", secretPath)
		}
		return "", errors.Wrapf(err, "failed to read secret file %q", secretPath)
	}

	log.Debug().Str("file", secretPath).Msg("Retrieved secret from file")
	return strings.TrimSpace(string(content)), nil
}

// Name returns the store name
func (f *FileStore) Name() string {
	return "File"
}
