// Package app wires the settings, secret store, credential resolver, DynamoDB client and
// controllers into a server. Both entrypoints share it.
package app

import (
	"context"
	"time"

	"github.com/animalet/notes-api/pkg/controller"
	"github.com/animalet/notes-api/pkg/credentials"
	"github.com/animalet/notes-api/pkg/database"
	"github.com/animalet/notes-api/pkg/notes"
	"github.com/animalet/notes-api/pkg/secrets"
	"github.com/animalet/notes-api/pkg/server"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	bootstrapAttempts = 10
	bootstrapDelay    = 2 * time.Second
)

// Build creates the server for s. Secret store and credential failures are returned as is,
// so callers can report them and exit.
func Build(ctx context.Context, s *settings.Settings) (*server.Server, error) {
	var store secrets.Store
	if s.IsLambda() && s.UseSecretsManager {
		var err error
		if store, err = secrets.New(ctx, s); err != nil {
			return nil, errors.Wrap(err, "failed to create secret store")
		}
	}

	factory := database.NewDynamoDBFactory(s, credentials.NewResolver(store, nil))
	client, err := factory.CreateClient(ctx)
	if err != nil {
		return nil, err
	}
	notesStore := notes.NewStore(client, s.NotesTable)

	srv := server.New(s,
		controller.NewHealthController(),
		controller.NewEchoController(),
		controller.NewNotesController(notesStore),
	)

	if s.IsDevelopment() && s.IsLocal() {
		srv.AddStartupHook(func(ctx context.Context) error {
			go func() {
				if err := notes.Bootstrap(ctx, notesStore, bootstrapAttempts, bootstrapDelay); err != nil {
					log.Warn().Err(err).Msg("Development table bootstrap failed, DynamoDB Local may still be starting")
				}
			}()
			return nil
		})
	}
	return srv, nil
}
