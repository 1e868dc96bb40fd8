// Package database builds DynamoDB clients from the service settings.
package database

import (
	"context"

	"github.com/animalet/notes-api/pkg/credentials"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultLocalEndpoint is where DynamoDB Local listens when running on a developer machine.
const DefaultLocalEndpoint = "http://localhost:8001"

// DynamoDBConfig holds what is needed to build a DynamoDB client.
type DynamoDBConfig struct {
	Region string
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack)
	Endpoint    string
	Credentials credentials.Credentials
}

// Validate checks if the DynamoDBConfig has all required fields set
func (d DynamoDBConfig) Validate() error {
	if d.Region == "" {
		return errors.New("DynamoDB region is required")
	}
	return nil
}

// CreateClient creates a DynamoDB client from this config. Unless both keys are present the
// default AWS credential chain applies.
func (d DynamoDBConfig) CreateClient(ctx context.Context) (*dynamodb.Client, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid DynamoDB configuration")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(d.Region)}
	if d.Credentials.Complete() {
		opts = append(opts, config.WithCredentialsProvider(d.Credentials.Provider()))
	} else if !d.Credentials.IsZero() {
		log.Debug().Msg("Incomplete AWS key pair, using the default credential chain")
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if d.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.Endpoint)
		}
	}), nil
}

// CredentialResolver yields the credentials a client should be built with.
type CredentialResolver interface {
	Resolve(ctx context.Context, s *settings.Settings, local bool) (credentials.Credentials, error)
}

// Factory builds DynamoDB clients, resolving credentials anew for each client.
type Factory struct {
	settings *settings.Settings
	resolver CredentialResolver
}

// NewDynamoDBFactory creates a factory bound to a snapshot of s.
func NewDynamoDBFactory(s *settings.Settings, resolver CredentialResolver) *Factory {
	return &Factory{settings: s.Snapshot(), resolver: resolver}
}

// Config resolves credentials and returns the configuration a client would be built from.
func (f *Factory) Config(ctx context.Context) (DynamoDBConfig, error) {
	local := f.settings.IsLocal()
	creds, err := f.resolver.Resolve(ctx, f.settings, local)
	if err != nil {
		return DynamoDBConfig{}, err
	}

	cfg := DynamoDBConfig{
		Region:      f.settings.AWSRegion,
		Endpoint:    f.settings.EndpointURL(),
		Credentials: creds,
	}
	if creds.Region != "" {
		cfg.Region = creds.Region
	}
	if local && cfg.Endpoint == "" {
		cfg.Endpoint = DefaultLocalEndpoint
	}
	return cfg, nil
}

// CreateClient builds a new DynamoDB client. Credential failures are returned unchanged.
func (f *Factory) CreateClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := f.Config(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Str("credentials", string(cfg.Credentials.Source)).
		Msg("Creating DynamoDB client")
	return cfg.CreateClient(ctx)
}
