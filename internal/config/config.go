// Package config provides configuration loading and management for the vocabulary sync service.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

const (
	// EnvPrefix is the prefix for service-level environment variables (VOCABS_SYNC_*)
	EnvPrefix = "VOCABS_SYNC"

	// EnvAPIKey holds the shared secret for the manual trigger
	EnvAPIKey = "VOCABS_UPDATE_API_KEY"

	// EnvStoreUser holds the triple store username
	EnvStoreUser = "FUSEKI_USER"

	// EnvStorePassword holds the triple store password
	EnvStorePassword = "FUSEKI_PASSWORD"

	// EnvStoreEndpoint overrides the graph-data endpoint of the triple store
	EnvStoreEndpoint = "FUSEKI_DATA_ENDPOINT"

	// EnvSyncInterval overrides the sync interval (Go duration, bare integers are minutes)
	EnvSyncInterval = "SYNC_INTERVAL"
)

const (
	// DefaultDataEndpoint is the Skosmos dataset of the eLTER vocabulary service
	DefaultDataEndpoint = "https://vocabs.elter-ri.eu/fuseki/skosmos/data"

	// DefaultSyncInterval is the wait between the end of one run and the start of the next
	DefaultSyncInterval = 10 * time.Minute

	// DefaultFetchTimeout bounds a single source download
	DefaultFetchTimeout = 60 * time.Second

	// DefaultPublishTimeout bounds a single graph upload
	DefaultPublishTimeout = 120 * time.Second

	// DefaultAddress is the listen address of the HTTP server
	DefaultAddress = ":8000"
)

const (
	// PublishMethodPut replaces the graph as defined by the Graph Store Protocol
	PublishMethodPut = "PUT"

	// PublishMethodPost merges the payload into the graph. Triples dropped from a
	// source are never removed, so it only suits stores that clear graphs elsewhere.
	PublishMethodPost = "POST"
)

// maxIntervalMinutes is the largest bare-integer interval a time.Duration can hold
const maxIntervalMinutes = math.MaxInt64 / int64(time.Minute)

var validate = newValidator()

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
	env  *viper.Viper
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithEnvironment sets the viper instance environment overrides are read from.
// By default the process environment is used.
func WithEnvironment(v *viper.Viper) Option {
	return func(cfg *loaderConfig) error {
		if v == nil {
			return fmt.Errorf("environment is required")
		}
		cfg.env = v
		return nil
	}
}

// NewEnvironment returns a viper instance bound to the environment variables the service understands
func NewEnvironment() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The unprefixed names are kept from the original deployment.
	_ = v.BindEnv(EnvAPIKey, EnvAPIKey)
	_ = v.BindEnv(EnvStoreUser, EnvStoreUser)
	_ = v.BindEnv(EnvStorePassword, EnvStorePassword)
	_ = v.BindEnv(EnvStoreEndpoint, EnvStoreEndpoint)
	_ = v.BindEnv(EnvSyncInterval, EnvSyncInterval)
	return v
}

// Config represents the root configuration structure
type Config struct {
	// Sources maps each remote RDF document to the named graph it replaces, in sync order
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`

	// Store describes the triple store the graphs are written to
	Store StoreConfig `yaml:"store"`

	// Trigger configures the manual sync endpoint
	Trigger TriggerConfig `yaml:"trigger"`

	SyncPolicy SyncPolicyConfig `yaml:"syncPolicy"`

	Server ServerConfig `yaml:"server"`

	// Telemetry is optional; nil disables tracing and metrics
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig maps one source document to its target graph
type SourceConfig struct {
	// URI is the HTTP(S) location of the RDF document
	URI string `yaml:"uri" validate:"required,http_url"`

	// Graph is the IRI of the named graph replaced with the document contents
	Graph string `yaml:"graph" validate:"required,uri"`

	// Format is the RDF serialization of the document.
	// Inferred from the URI extension when empty, falling back to turtle.
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=turtle rdfxml ntriples nquads jsonld trig n3"`
}

// StoreConfig defines the triple store connection settings
type StoreConfig struct {
	// Endpoint is the graph-data endpoint of the dataset, e.g. https://host/fuseki/skosmos/data
	Endpoint string `yaml:"endpoint" validate:"required,http_url"`

	// Method is PUT (default) or POST
	Method string `yaml:"method,omitempty" validate:"omitempty,oneof=POST PUT"`

	// Username for HTTP basic authentication
	Username string `yaml:"username,omitempty"`

	// PasswordFile is the path to a file containing the store password.
	// It takes precedence over FUSEKI_PASSWORD.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Password is resolved at load time and never read from YAML
	Password string `yaml:"-"`
}

// TriggerConfig defines the manual trigger settings
type TriggerConfig struct {
	// APIKeyFile is the path to a file containing the shared secret.
	// It takes precedence over VOCABS_UPDATE_API_KEY.
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`

	// APIKey is resolved at load time and never read from YAML
	APIKey string `yaml:"-" validate:"required"`
}

// SyncPolicyConfig defines synchronization settings
type SyncPolicyConfig struct {
	// Interval between runs, e.g. "10m". A bare integer is read as minutes.
	Interval string `yaml:"interval,omitempty"`

	// FetchTimeout bounds each source download
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`

	// PublishTimeout bounds each graph upload
	PublishTimeout string `yaml:"publishTimeout,omitempty"`

	// LockFile, when set, serializes runs across processes sharing the file
	LockFile string `yaml:"lockFile,omitempty"`
}

// ServerConfig defines the HTTP server settings
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// DefaultSources returns the three LTER-Europe vocabularies published by the eLTER Skosmos instance
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			URI:   "https://raw.githubusercontent.com/LTER-Europe/SO/refs/heads/main/standard-observations.ttl",
			Graph: "http://skos.um.es/unescothes/",
		},
		{
			URI:   "https://raw.githubusercontent.com/LTER-Europe/EnvThes/refs/heads/main/EnvThes.ttl",
			Graph: "http://vocabs.lter-europe.net/EnvThes/",
		},
		{
			URI:   "https://raw.githubusercontent.com/LTER-Europe/eLTER_CL/refs/heads/main/elter_cl.ttl",
			Graph: "http://vocabs.lter-europe.net/elter_cl/",
		},
	}
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Sources: DefaultSources(),
		Store: StoreConfig{
			Endpoint: DefaultDataEndpoint,
			Method:   PublishMethodPut,
		},
		SyncPolicy: SyncPolicyConfig{
			Interval:       DefaultSyncInterval.String(),
			FetchTimeout:   DefaultFetchTimeout.String(),
			PublishTimeout: DefaultPublishTimeout.String(),
		},
		Server: ServerConfig{
			Address: DefaultAddress,
		},
	}
}

// LoadConfig builds the configuration from the defaults, an optional YAML file and the environment
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}
	if loaderCfg.env == nil {
		loaderCfg.env = NewEnvironment()
	}

	config := Default()

	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Fields absent from the file keep their defaults
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyEnvironment(loaderCfg.env)

	if err := config.resolveSecrets(loaderCfg.env); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironment overlays non-secret environment overrides
func (c *Config) applyEnvironment(v *viper.Viper) {
	if endpoint := v.GetString(EnvStoreEndpoint); endpoint != "" {
		c.Store.Endpoint = endpoint
	}
	if user := v.GetString(EnvStoreUser); user != "" {
		c.Store.Username = user
	}
	if interval := v.GetString(EnvSyncInterval); interval != "" {
		c.SyncPolicy.Interval = interval
	}
}

// resolveSecrets reads the store password and the trigger secret, files first
func (c *Config) resolveSecrets(v *viper.Viper) error {
	password, err := readSecret(c.Store.PasswordFile, v.GetString(EnvStorePassword))
	if err != nil {
		return fmt.Errorf("failed to read store password: %w", err)
	}
	c.Store.Password = password

	apiKey, err := readSecret(c.Trigger.APIKeyFile, v.GetString(EnvAPIKey))
	if err != nil {
		return fmt.Errorf("failed to read trigger API key: %w", err)
	}
	c.Trigger.APIKey = apiKey

	return nil
}

// readSecret returns the trimmed content of path if set, otherwise fallback
func readSecret(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}

	// Use filepath.Clean to prevent path traversal attacks
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetAddress returns the listen address, using DefaultAddress if not specified
func (c *Config) GetAddress() string {
	if c.Server.Address == "" {
		return DefaultAddress
	}
	return c.Server.Address
}

// GetMethod returns the publish method, PUT if not specified
func (s *StoreConfig) GetMethod() string {
	if s.Method == "" {
		return PublishMethodPut
	}
	return s.Method
}

// GetInterval returns the parsed sync interval
func (p *SyncPolicyConfig) GetInterval() time.Duration {
	return durationOrDefault(p.Interval, DefaultSyncInterval)
}

// GetFetchTimeout returns the parsed fetch timeout
func (p *SyncPolicyConfig) GetFetchTimeout() time.Duration {
	return durationOrDefault(p.FetchTimeout, DefaultFetchTimeout)
}

// GetPublishTimeout returns the parsed publish timeout
func (p *SyncPolicyConfig) GetPublishTimeout() time.Duration {
	return durationOrDefault(p.PublishTimeout, DefaultPublishTimeout)
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := ParseInterval(value)
	if err != nil {
		return fallback
	}
	return d
}

// ParseInterval parses a Go duration string. A bare integer is read as minutes,
// matching the historical SYNC_INTERVAL=10 form.
func ParseInterval(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	minutes, err := strconv.ParseInt(value, 10, 64)
	switch {
	case err == nil:
		if minutes > maxIntervalMinutes || minutes < -maxIntervalMinutes {
			return 0, fmt.Errorf("interval of %d minutes is out of range", minutes)
		}
		return time.Duration(minutes) * time.Minute, nil
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Errorf("interval %q is out of range", value)
	}
	return time.ParseDuration(value)
}

// Validate performs validation on the configuration. Secrets must already be resolved.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Check for duplicate source URIs
	uris := make(map[string]bool)
	for i, src := range c.Sources {
		if uris[src.URI] {
			return fmt.Errorf("sources[%d]: duplicate source uri '%s'", i, src.URI)
		}
		uris[src.URI] = true
	}

	if err := validatePositiveDuration("syncPolicy.interval", c.SyncPolicy.Interval); err != nil {
		return err
	}
	if err := validatePositiveDuration("syncPolicy.fetchTimeout", c.SyncPolicy.FetchTimeout); err != nil {
		return err
	}
	if err := validatePositiveDuration("syncPolicy.publishTimeout", c.SyncPolicy.PublishTimeout); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validatePositiveDuration accepts an empty value (the default applies)
func validatePositiveDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := ParseInterval(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '90s', '10m'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their YAML names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// formatValidationErrors turns validator errors into one readable message per field
func formatValidationErrors(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	errs := make([]error, 0, len(validationErrs))
	for _, fe := range validationErrs {
		// Drop the root struct name from the namespace
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%s: failed '%s=%s' check", field, fe.Tag(), fe.Param()))
		} else {
			errs = append(errs, fmt.Errorf("%s: failed '%s' check", field, fe.Tag()))
		}
	}
	return errors.Join(errs...)
}
