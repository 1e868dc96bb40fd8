// Package settings resolves the service configuration from prefixed environment variables.
// Every field carries a default, so an empty environment yields a usable configuration.
// Values are parsed once, at startup, into a strongly typed Settings value that is then
// passed explicitly to every component that needs it.
package settings

import (
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/animalet/notes-api/internal/deepcopy"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultPrefix is prepended (with an underscore) to every variable name.
const DefaultPrefix = "APP"

// LookupFunc returns the value of an environment variable and whether it is present.
// os.LookupEnv is the production implementation.
type LookupFunc func(key string) (string, bool)

// Settings holds the typed service configuration.
type Settings struct {
	Prefix string `env:"-"`

	Host        string      `env:"HOST" default:"127.0.0.1"`
	Port        int         `env:"PORT" default:"8000"`
	Environment Environment `env:"ENVIRONMENT" default:"dev"`
	LogLevel    LogLevel    `env:"LOG_LEVEL" default:"INFO"`

	DynamoDBEndpointURL *string `env:"DYNAMODB_ENDPOINT_URL"`
	AWSRegion           string  `env:"AWS_REGION" default:"eu-west-1"`
	UseSecretsManager   bool    `env:"USE_SECRETS_MANAGER" default:"true"`
	DynamoDBSecretName  *string `env:"DYNAMODB_SECRET_NAME"`
	NotesTable          string  `env:"NOTES_TABLE" default:"notes"`

	SecretsBackend     SecretsBackend `env:"SECRETS_BACKEND" default:"aws"`
	SecretsEndpointURL *string        `env:"SECRETS_ENDPOINT_URL"`
	VaultAddress       string         `env:"VAULT_ADDRESS"`
	VaultToken         string         `env:"VAULT_TOKEN"`
	VaultPath          string         `env:"VAULT_PATH" default:"secret/data"`
	VaultNamespace     string         `env:"VAULT_NAMESPACE"`
	SecretsDir         string         `env:"SECRETS_DIR" default:"/run/secrets"`

	CORSOrigins     []string      `env:"BACKEND_CORS_ORIGINS"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" default:"50"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"30s"`

	// LambdaFunctionName is set by the Lambda runtime, never by operators.
	LambdaFunctionName string `env:"AWS_LAMBDA_FUNCTION_NAME,unprefixed"`
}

type options struct {
	prefix  string
	lookup  LookupFunc
	envFile string
}

// Option customizes Load.
type Option func(*options)

// WithPrefix replaces DefaultPrefix. An empty prefix reads bare variable names.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLookup replaces os.LookupEnv as the source of variables.
func WithLookup(lookup LookupFunc) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithEnvFile adds a dotenv file as a lower priority source. A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// Load resolves the settings. Variables present in the environment win over entries of the
// env file, which win over defaults. A value that cannot be parsed fails the whole load with
// a *ConfigError naming the variable.
func Load(opts ...Option) (*Settings, error) {
	o := options{prefix: DefaultPrefix, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	lookup := o.lookup
	if o.envFile != "" {
		fileValues, err := godotenv.Read(o.envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, &ConfigError{Variable: o.envFile, Err: errors.Wrap(err, "unable to parse env file")}
		default:
			lookup = layered(o.lookup, fileValues)
		}
	}

	s := &Settings{Prefix: o.prefix}
	if err := populate(s, o.prefix, lookup); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func layered(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

// Validate checks ranges that the type system cannot express.
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return s.invalid("PORT", strconv.Itoa(s.Port), errors.New("port must be between 1 and 65535"))
	}
	if s.AWSRegion == "" {
		return s.invalid("AWS_REGION", s.AWSRegion, errors.New("region must be set and non-empty"))
	}
	if s.NotesTable == "" {
		return s.invalid("NOTES_TABLE", s.NotesTable, errors.New("table name must be set and non-empty"))
	}
	if s.RateLimitRPS < 0 {
		return s.invalid("RATE_LIMIT_RPS", strconv.FormatFloat(s.RateLimitRPS, 'f', -1, 64), errors.New("rate must be non-negative"))
	}
	if s.RateLimitBurst < 0 {
		return s.invalid("RATE_LIMIT_BURST", strconv.Itoa(s.RateLimitBurst), errors.New("burst must be non-negative"))
	}
	if s.ShutdownTimeout < 0 {
		return s.invalid("SHUTDOWN_TIMEOUT", s.ShutdownTimeout.String(), errors.New("timeout must be non-negative"))
	}
	return nil
}

func (s *Settings) invalid(name, value string, err error) *ConfigError {
	return &ConfigError{Variable: VariableName(s.Prefix, name), Value: value, Err: err}
}

// IsLambda reports whether the process runs inside AWS Lambda, either because it was
// configured so or because the Lambda runtime announced itself.
func (s *Settings) IsLambda() bool {
	return s.Environment == EnvironmentLambda || s.LambdaFunctionName != ""
}

// IsLocal is the negation of IsLambda: a developer machine or a local container.
func (s *Settings) IsLocal() bool {
	return !s.IsLambda()
}

// IsDevelopment reports whether development conveniences (table bootstrap, sample data) apply.
func (s *Settings) IsDevelopment() bool {
	return s.Environment == EnvironmentDev
}

// Address returns the host:port pair to listen on.
func (s *Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// EndpointURL returns the DynamoDB endpoint override, or "" when unset.
func (s *Settings) EndpointURL() string {
	if s.DynamoDBEndpointURL == nil {
		return ""
	}
	return *s.DynamoDBEndpointURL
}

// SecretName returns the name of the DynamoDB credentials secret, or "" when unset.
func (s *Settings) SecretName() string {
	if s.DynamoDBSecretName == nil {
		return ""
	}
	return *s.DynamoDBSecretName
}

// SecretsEndpoint returns the secret store endpoint override, or "" when unset.
func (s *Settings) SecretsEndpoint() string {
	if s.SecretsEndpointURL == nil {
		return ""
	}
	return *s.SecretsEndpointURL
}

// Snapshot returns a deep copy so consumers cannot alter shared configuration.
func (s *Settings) Snapshot() *Settings {
	return deepcopy.MustCopy(s)
}

// VariableName builds the environment variable name for a field.
func VariableName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
