// Package credentials decides which AWS credentials the DynamoDB client is built with.
//
// Three outcomes exist and nothing is cached between calls:
//   - running locally: fixed placeholder credentials for a DynamoDB emulator;
//   - hosted with the secret store enabled: the credentials held by the named secret,
//     with any lookup failure being fatal;
//   - hosted with the secret store disabled: the standard AWS variables, read verbatim.
package credentials

import (
	"context"
	"encoding/json"
	"os"

	"github.com/animalet/notes-api/pkg/secrets"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/aws/aws-sdk-go-v2/aws"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	PlaceholderAccessKeyID     = "fakeLocalKey"
	PlaceholderSecretAccessKey = "fakeLocalSecret"
)

// Source identifies where a set of credentials came from.
type Source string

const (
	SourcePlaceholder Source = "placeholder"
	SourceSecretStore Source = "secret_store"
	SourceEnvironment Source = "environment"
)

// Credentials is a transient set of AWS keys.
type Credentials struct {
	AccessKeyID     string `json:"aws_access_key_id"`
	SecretAccessKey string `json:"aws_secret_access_key"`
	SessionToken    string `json:"aws_session_token,omitempty"`
	// Region optionally overrides the configured region, only secrets set it.
	Region string `json:"region,omitempty"`
	Source Source `json:"-"`
}

// Placeholder returns the fixed credentials accepted by DynamoDB Local.
func Placeholder() Credentials {
	return Credentials{
		AccessKeyID:     PlaceholderAccessKeyID,
		SecretAccessKey: PlaceholderSecretAccessKey,
		Source:          SourcePlaceholder,
	}
}

// IsZero reports that no key material is present.
func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// Complete reports that both keys are present, which is what a static provider needs.
func (c Credentials) Complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// IsPlaceholder reports whether these are the local development credentials.
func (c Credentials) IsPlaceholder() bool {
	return c.AccessKeyID == PlaceholderAccessKeyID && c.SecretAccessKey == PlaceholderSecretAccessKey
}

// Provider wraps the keys in a static AWS credentials provider.
func (c Credentials) Provider() aws.CredentialsProvider {
	return awscredentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}

// Resolver produces Credentials on demand.
type Resolver struct {
	store  secrets.Store
	lookup settings.LookupFunc
}

// NewResolver creates a resolver. store may be nil when no configuration will ever ask for it;
// lookup defaults to os.LookupEnv.
func NewResolver(store secrets.Store, lookup settings.LookupFunc) *Resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Resolver{store: store, lookup: lookup}
}

// Resolve returns the credentials for the given settings. local forces placeholder credentials
// regardless of s.UseSecretsManager. A secret store failure yields a *CredentialError and never
// falls back to the environment.
func (r *Resolver) Resolve(ctx context.Context, s *settings.Settings, local bool) (Credentials, error) {
	if local {
		log.Debug().Msg("Using placeholder credentials for local DynamoDB")
		return Placeholder(), nil
	}

	if s.UseSecretsManager {
		return r.fromSecretStore(ctx, s.SecretName())
	}

	return r.fromEnvironment(), nil
}

func (r *Resolver) fromSecretStore(ctx context.Context, name string) (Credentials, error) {
	if r.store == nil {
		return Credentials{}, &CredentialError{SecretName: name, Err: errors.New("no secret store configured")}
	}
	if name == "" {
		return Credentials{}, &CredentialError{Store: r.store.Name(), Err: errors.New("secret name must be set and non-empty")}
	}

	raw, err := r.store.GetSecret(ctx, name)
	if err != nil {
		log.Error().Str("store", r.store.Name()).Str("secret_name", name).Msg("Failed to retrieve DynamoDB credentials")
		return Credentials{}, &CredentialError{Store: r.store.Name(), SecretName: name, Err: err}
	}

	var creds Credentials
	if err = json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, &CredentialError{Store: r.store.Name(), SecretName: name, Err: errors.New("secret is not a JSON object")}
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, &CredentialError{Store: r.store.Name(), SecretName: name, Err: errors.New("secret lacks aws_access_key_id or aws_secret_access_key")}
	}

	creds.Source = SourceSecretStore
	log.Info().Str("store", r.store.Name()).Str("secret_name", name).Msg("Using secret store credentials for DynamoDB")
	return creds, nil
}

func (r *Resolver) fromEnvironment() Credentials {
	accessKey, _ := r.lookup("AWS_ACCESS_KEY_ID")
	secretKey, _ := r.lookup("AWS_SECRET_ACCESS_KEY")
	sessionToken, _ := r.lookup("AWS_SESSION_TOKEN")

	creds := Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    sessionToken,
		Source:          SourceEnvironment,
	}
	if creds.IsZero() {
		log.Info().Msg("No AWS keys in the environment, the default credential chain applies")
	} else {
		log.Info().Msg("Using environment variable credentials for DynamoDB")
	}
	return creds
}
