package main

import (
	"context"
	"os"

	"github.com/animalet/notes-api/internal/app"
	"github.com/animalet/notes-api/pkg/logging"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
)

func main() {
	s, err := settings.Load(settings.WithPrefix(envOr("SETTINGS_PREFIX", settings.DefaultPrefix)))
	if err != nil {
		logging.Configure(settings.LogLevelError, true, os.Stdout)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Configure(s.LogLevel, true, os.Stdout)

	srv, err := app.Build(context.Background(), s)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	handler, err := srv.LambdaHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	lambda.Start(handler)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
