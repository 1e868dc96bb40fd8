package notes

import (
	"context"
	_ "embed"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

// seedConcurrency bounds the number of in-flight PutItem calls while seeding.
const seedConcurrency = 4

// SampleNotes returns the notes inserted into a freshly created development table.
func SampleNotes() ([]NoteCreate, error) {
	var samples []NoteCreate
	if err := yaml.Unmarshal(samplesYAML, &samples); err != nil {
		return nil, errors.Wrap(err, "failed to parse sample notes")
	}
	return samples, nil
}

// EnsureTable creates the notes table when it does not exist and waits until it is active.
// created reports whether this call created it.
func (s *Store) EnsureTable(ctx context.Context) (created bool, err error) {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		if out.Table != nil && out.Table.TableStatus != types.TableStatusActive {
			return false, s.waitActive(ctx)
		}
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, errors.Wrapf(err, "failed to describe table %q", s.table)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			log.Debug().Str("table", s.table).Msg("Table is being created elsewhere")
			return false, s.waitActive(ctx)
		}
		return false, errors.Wrapf(err, "failed to create table %q", s.table)
	}
	log.Info().Str("table", s.table).Msg("Created DynamoDB table")

	return true, s.waitActive(ctx)
}

func (s *Store) waitActive(ctx context.Context) error {
	err := retry.Do(
		func() error {
			out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
			if err != nil {
				return err
			}
			if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
				return errors.Errorf("table %q is not active yet", s.table)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.pollAttempts),
		retry.Delay(s.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return errors.Wrapf(err, "table %q did not become active", s.table)
}

// Seed inserts the given notes concurrently. The first failure cancels the remaining inserts.
func (s *Store) Seed(ctx context.Context, samples []NoteCreate) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, sample := range samples {
		g.Go(func() error {
			_, err := s.Create(ctx, sample)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "failed to seed notes")
	}
	log.Info().Int("count", len(samples)).Msg("Inserted sample notes")
	return nil
}

// Bootstrap prepares a development table: it retries EnsureTable while DynamoDB Local starts
// and seeds the sample notes when the table did not exist before. An attempt that created the
// table counts even if a later attempt finished waiting for it.
func Bootstrap(ctx context.Context, store *Store, attempts uint, delay time.Duration) error {
	var created bool
	err := retry.Do(
		func() error {
			c, err := store.EnsureTable(ctx)
			created = created || c
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Uint("attempt", n+1).Err(err).Msg("DynamoDB not ready, retrying")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "could not create DynamoDB tables")
	}
	if !created {
		return nil
	}

	samples, err := SampleNotes()
	if err != nil {
		return err
	}
	return store.Seed(ctx, samples)
}
