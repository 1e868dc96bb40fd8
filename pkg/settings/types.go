package settings

import (
	"strings"

	"github.com/pkg/errors"
)

// Environment names the runtime the service is deployed to.
type Environment string

const (
	EnvironmentDev    Environment = "dev"
	EnvironmentLambda Environment = "lambda"
)

// UnmarshalText accepts "dev" (or its alias "development") and "lambda", case-insensitively.
func (e *Environment) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "dev", "development":
		*e = EnvironmentDev
	case "lambda":
		*e = EnvironmentLambda
	default:
		return errors.Errorf("unknown environment %q, expected one of dev, lambda", string(text))
	}
	return nil
}

// LogLevel is the operator facing log level name.
type LogLevel string

const (
	LogLevelNotSet  LogLevel = "NOTSET"
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
	LogLevelFatal   LogLevel = "FATAL"
)

var logLevels = []LogLevel{LogLevelNotSet, LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal}

// UnmarshalText accepts any of the known level names, case-insensitively.
func (l *LogLevel) UnmarshalText(text []byte) error {
	candidate := LogLevel(strings.ToUpper(string(text)))
	for _, level := range logLevels {
		if candidate == level {
			*l = level
			return nil
		}
	}
	return errors.Errorf("unknown log level %q, expected one of %s", string(text), joinLevels())
}

func joinLevels() string {
	names := make([]string, len(logLevels))
	for i, level := range logLevels {
		names[i] = string(level)
	}
	return strings.Join(names, ", ")
}

// SecretsBackend selects the secret store queried for DynamoDB credentials.
type SecretsBackend string

const (
	SecretsBackendAWS   SecretsBackend = "aws"
	SecretsBackendVault SecretsBackend = "vault"
	SecretsBackendFile  SecretsBackend = "file"
	SecretsBackendEnv   SecretsBackend = "env"
)

// UnmarshalText accepts "aws", "vault", "file" and "env", case-insensitively.
func (b *SecretsBackend) UnmarshalText(text []byte) error {
	switch candidate := SecretsBackend(strings.ToLower(string(text))); candidate {
	case SecretsBackendAWS, SecretsBackendVault, SecretsBackendFile, SecretsBackendEnv:
		*b = candidate
		return nil
	default:
		return errors.Errorf("unknown secrets backend %q, expected one of aws, vault, file, env", string(text))
	}
}
