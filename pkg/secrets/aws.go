package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig holds configuration for AWS Secrets Manager. Credentials always come from the
// default chain (execution role, env vars, shared config).
type AWSConfig struct {
	Region   string
	Endpoint string // Optional: for LocalStack or custom endpoints
}

// Validate checks if the AWSConfig has all required fields set
func (a AWSConfig) Validate() error {
	if a.Region == "" {
		return errors.New("AWS region is required")
	}
	return nil
}

// CreateClient creates and configures an AWS Secrets Manager client from this config.
func (a AWSConfig) CreateClient(ctx context.Context) (*secretsmanager.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AWS Secrets Manager configuration")
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(a.Region),
	}

	if a.Endpoint != "" {
		configOpts = append(configOpts, config.WithBaseEndpoint(a.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return secretsmanager.NewFromConfig(cfg), nil
}

// SecretsManagerAPI is the part of the Secrets Manager client used by AWSStore.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads secrets from AWS Secrets Manager.
type AWSStore struct {
	client SecretsManagerAPI
}

// NewAWSStore creates a store backed by the given Secrets Manager client.
func NewAWSStore(client SecretsManagerAPI) *AWSStore {
	return &AWSStore{client: client}
}

// GetSecret returns the string value of the secret. Binary secrets are rejected.
func (a *AWSStore) GetSecret(ctx context.Context, name string) (string, error) {
	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", errors.Wrapf(ErrSecretNotFound, "AWS Secrets Manager has no secret %q", name)
		}

		code := "unknown"
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code = apiErr.ErrorCode()
		}
		log.Error().Str("secret_name", name).Str("code", code).Msg("Unable to read secret from AWS Secrets Manager")
		return "", errors.Wrapf(err, "failed to read secret from AWS Secrets Manager: %q", name)
	}

	if result.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", name)
	}

	log.Debug().Str("secret_name", name).Msg("Retrieved secret from AWS Secrets Manager")
	return *result.SecretString, nil
}

// Name returns the store name
func (a *AWSStore) Name() string {
	return "AWS Secrets Manager"
}
