package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/animalet/notes-api/internal/app"
	"github.com/animalet/notes-api/pkg/logging"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/rs/zerolog/log"
)

// Version information set during build
var (
	version = "dev"
)

func main() {
	cli := kingpin.New("notes-api", "Notes REST API backed by DynamoDB")
	cli.Version(version)
	envFile := cli.Flag("env-file", "Optional dotenv file read after the process environment").Default(".env").String()
	prefix := cli.Flag("prefix", "Prefix of the configuration environment variables").Default(settings.DefaultPrefix).Envar("SETTINGS_PREFIX").String()

	kingpin.MustParse(cli.Parse(os.Args[1:]))

	s, err := settings.Load(settings.WithPrefix(*prefix), settings.WithEnvFile(*envFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(s.LogLevel, s.IsLambda(), os.Stdout)

	log.Info().
		Str("version", version).
		Str("environment", string(s.Environment)).
		Bool("lambda", s.IsLambda()).
		Msg("Starting notes-api")

	srv, err := app.Build(context.Background(), s)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	if err = srv.StartAndWaitForSignal(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
