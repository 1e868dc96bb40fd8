package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EnvStore reads secrets from environment variables, the way container platforms such as
// ECS inject them. The secret name is turned into a variable name: "prod/dynamodb" becomes
// PROD_DYNAMODB.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore creates a store reading through lookup, os.LookupEnv when nil.
func NewEnvStore(lookup func(string) (string, bool)) *EnvStore {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvStore{lookup: lookup}
}

// VariableFor returns the environment variable holding the named secret.
func VariableFor(name string) string {
	return strings.ToUpper(strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(name))
}

func (e *EnvStore) GetSecret(_ context.Context, name string) (string, error) {
	variable := VariableFor(name)
	value, ok := e.lookup(variable)
	if !ok || value == "" {
		return "", errors.Wrapf(ErrSecretNotFound, "environment variable %s for secret %q is not set", variable, name)
	}

	log.Debug().Str("env_var", variable).Msg("Retrieved secret from environment variable")
	return value, nil
}

func (e *EnvStore) Name() string {
	return "Environment"
}
