// Package config loads the application configuration from a YAML file and the environment.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/otakuparshva/ai-recruitment/internal/repositories"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
	"github.com/otakuparshva/ai-recruitment/internal/store"
)

var (
	instance *Config
	mu       sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Retry       RetrySet          `mapstructure:"retry"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `mapstructure:"host" validate:"required"`
	Port            int             `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout" validate:"min=0"`
	RequestTimeout  time.Duration   `mapstructure:"request_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" validate:"min=0"`
	HealthInterval  time.Duration   `mapstructure:"health_interval" validate:"min=0"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client per window. Requests 0 disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=0"`
	Window   time.Duration `mapstructure:"window" validate:"min=0"`
}

// MongoConfig contains the document store connection settings
type MongoConfig struct {
	URI                    string        `mapstructure:"uri" validate:"required,mongouri"`
	Database               string        `mapstructure:"database" validate:"required,excludesall=/\\. \"$"`
	AppName                string        `mapstructure:"app_name"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	SocketTimeout          time.Duration `mapstructure:"socket_timeout" validate:"gt=0"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout" validate:"gt=0"`
	PingTimeout            time.Duration `mapstructure:"ping_timeout" validate:"gt=0"`
	OperationTimeout       time.Duration `mapstructure:"operation_timeout" validate:"min=0"`
	HeartbeatInterval      time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	MaxPoolSize            uint64        `mapstructure:"max_pool_size"`
}

// RetryConfig is one retry policy
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=100"`
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"min=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"min=0"`
	Strategy    string        `mapstructure:"strategy" validate:"oneof=linear exponential"`
}

// RetrySet holds the policies for connection establishment, repository operations and index creation.
type RetrySet struct {
	Connect   RetryConfig `mapstructure:"connect"`
	Operation RetryConfig `mapstructure:"operation"`
	Index     RetryConfig `mapstructure:"index"`
}

// ConcurrencyConfig contains concurrency settings
type ConcurrencyConfig struct {
	HTTPMaxWorkers   int           `mapstructure:"http_max_workers" validate:"min=1"`
	MaxConcurrentOps int           `mapstructure:"max_concurrent_ops" validate:"min=1"`
	BatchWorkers     int           `mapstructure:"batch_workers" validate:"min=1"`
	BatchQueueSize   int           `mapstructure:"batch_queue_size" validate:"min=1"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout" validate:"min=0"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// Get returns the loaded configuration, or nil before Load.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Load reads configPath (optional) and the environment, validates the result and publishes it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()
	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 45*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.health_interval", 30*time.Second)
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", time.Minute)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "recruitment_db")
	v.SetDefault("mongo.app_name", "recruitment-system")
	v.SetDefault("mongo.connect_timeout", 5*time.Second)
	v.SetDefault("mongo.socket_timeout", 30*time.Second)
	v.SetDefault("mongo.server_selection_timeout", 5*time.Second)
	v.SetDefault("mongo.ping_timeout", 5*time.Second)
	v.SetDefault("mongo.operation_timeout", 30*time.Second)
	v.SetDefault("mongo.heartbeat_interval", 10*time.Second)
	v.SetDefault("mongo.max_pool_size", 100)

	v.SetDefault("retry.connect.max_attempts", 5)
	v.SetDefault("retry.connect.base_delay", 2*time.Second)
	v.SetDefault("retry.connect.max_delay", 0)
	v.SetDefault("retry.connect.strategy", string(retry.Linear))
	v.SetDefault("retry.operation.max_attempts", 3)
	v.SetDefault("retry.operation.base_delay", 2*time.Second)
	v.SetDefault("retry.operation.max_delay", 10*time.Second)
	v.SetDefault("retry.operation.strategy", string(retry.Exponential))
	v.SetDefault("retry.index.max_attempts", 3)
	v.SetDefault("retry.index.base_delay", 2*time.Second)
	v.SetDefault("retry.index.max_delay", 10*time.Second)
	v.SetDefault("retry.index.strategy", string(retry.Exponential))

	v.SetDefault("concurrency.http_max_workers", 100)
	v.SetDefault("concurrency.max_concurrent_ops", 10)
	v.SetDefault("concurrency.batch_workers", 5)
	v.SetDefault("concurrency.batch_queue_size", 100)
	v.SetDefault("concurrency.batch_timeout", 2*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// bindEnvVars binds the variable names used by existing deployments next to the APP_ ones.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"mongo.uri":      {"APP_MONGO_URI", "MONGO_URI"},
		"mongo.database": {"APP_MONGO_DATABASE", "MONGO_DB_NAME", "DATABASE_NAME"},
		"log.level":      {"APP_LOG_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mongouri", func(fl validator.FieldLevel) bool {
		uri := fl.Field().String()
		return strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://")
	})
	return v
}

// Validate performs validation on the configuration
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	for name, rc := range map[string]RetryConfig{
		"retry.connect":   cfg.Retry.Connect,
		"retry.operation": cfg.Retry.Operation,
		"retry.index":     cfg.Retry.Index,
	} {
		if rc.MaxDelay > 0 && rc.MaxDelay < rc.BaseDelay {
			return fmt.Errorf("%s.max_delay must not be below base_delay", name)
		}
	}
	return nil
}

// Policy converts the config into a retry policy. The classifier is chosen by the consumer.
func (rc RetryConfig) Policy(name string) retry.Policy {
	return retry.Policy{
		Name:        name,
		MaxAttempts: rc.MaxAttempts,
		BaseDelay:   rc.BaseDelay,
		MaxDelay:    rc.MaxDelay,
		Strategy:    retry.Strategy(rc.Strategy),
	}
}

// StoreOptions builds the connection manager options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Dial: store.DialOptions{
			URI:                    c.Mongo.URI,
			AppName:                c.Mongo.AppName,
			ConnectTimeout:         c.Mongo.ConnectTimeout,
			SocketTimeout:          c.Mongo.SocketTimeout,
			ServerSelectionTimeout: c.Mongo.ServerSelectionTimeout,
			HeartbeatInterval:      c.Mongo.HeartbeatInterval,
			MaxPoolSize:            c.Mongo.MaxPoolSize,
		},
		Database:    c.Mongo.Database,
		PingTimeout: c.Mongo.PingTimeout,
		Connect:     c.Retry.Connect.Policy("connect"),
	}
}

// EngineOptions builds the repository engine options.
func (c *Config) EngineOptions() repositories.EngineOptions {
	opts := repositories.DefaultEngineOptions()
	opts.Policy = c.Retry.Operation.Policy("operation")
	opts.OperationTimeout = c.Mongo.OperationTimeout
	return opts
}

// IndexPolicy is the retry policy for index provisioning.
func (c *Config) IndexPolicy() retry.Policy {
	return c.Retry.Index.Policy("indexes")
}

// Address is the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
