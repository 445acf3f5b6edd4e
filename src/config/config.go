package config

import (
	"os"
	"strconv"
	"strings"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	MockDomain = "https://mockapi.kiwoom.com"
	RealDomain = "https://api.kiwoom.com"

	MinRefreshInterval = 30
	MaxRefreshInterval = 60
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file. Credentials found in the
// environment (or in envFile, when given) override the YAML values.
func NewConfig(configPath string, envFile string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file '%s'", configPath)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, errors.Wrap(err, "failed to parse config from YAML")
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// 3. Secrets stay out of the YAML file
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	config.ApplyEnv()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration usable without a YAML file.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

func loadEnvFile(envFile string) error {
	if envFile == "" {
		// optional .env next to the binary
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return errors.Wrapf(err, "failed to load env file '%s'", envFile)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "kiwoom-dashboard"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 5001
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = "127.0.0.1"
	}

	b := &c.Broker
	if b.ServerType == "" {
		b.ServerType = string(models.ServerMock)
	}
	if b.Mock.Domain == "" {
		b.Mock.Domain = MockDomain
	}
	if b.Real.Domain == "" {
		b.Real.Domain = RealDomain
	}
	if b.Exchange == "" {
		b.Exchange = "KRX"
	}
	if b.RequestTimeout == 0 {
		b.RequestTimeout = 10
	}
	if b.TokenExpireBuffer == 0 {
		b.TokenExpireBuffer = 300
	}
	if b.TokenCacheDir == "" {
		b.TokenCacheDir = "cache"
	}
	if b.UserAgent == "" {
		b.UserAgent = "kiwoom-dashboard/1.0"
	}
	if b.ResponseCacheDir == "" {
		b.ResponseCacheDir = "cache/api_responses"
	}
	if b.ResponseCacheTTL == 0 {
		b.ResponseCacheTTL = 300
	}

	if c.Refresh.IntervalSeconds == 0 {
		c.Refresh.IntervalSeconds = MinRefreshInterval
	}
	if c.Relay.SendBuffer == 0 {
		c.Relay.SendBuffer = 256
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "data/orders.db"
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides credentials and a few runtime knobs from the environment
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Broker.Mock.AppKey, "KIWOOM_APP_KEY_MOCK")
	setString(&c.Broker.Mock.SecretKey, "KIWOOM_SECRET_KEY_MOCK")
	setString(&c.Broker.Real.AppKey, "KIWOOM_APP_KEY_REAL")
	setString(&c.Broker.Real.SecretKey, "KIWOOM_SECRET_KEY_REAL")
	setString(&c.Broker.ServerType, "KIWOOM_SERVER_TYPE")
	setString(&c.Storage.DBConnectionString, "KIWOOM_DB_CONNECTION_STRING")

	if v := os.Getenv("KIWOOM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	c.Broker.ServerType = strings.ToLower(c.Broker.ServerType)
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return errors.New("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return errors.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return errors.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Broker
	switch models.ServerType(c.Broker.ServerType) {
	case models.ServerMock, models.ServerReal:
	default:
		return errors.Errorf("unknown server type '%s' (must be mock or real)", c.Broker.ServerType)
	}
	if c.Broker.ActiveServer().Domain == "" {
		return errors.New("broker domain cannot be empty")
	}
	if c.Broker.Exchange != "KRX" && c.Broker.Exchange != "NXT" {
		return errors.Errorf("unknown exchange '%s' (must be KRX or NXT)", c.Broker.Exchange)
	}
	if c.Broker.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if c.Broker.RequestsPerSecond < 0 {
		return errors.New("requests per second cannot be negative")
	}
	if c.Broker.TokenExpireBuffer < 0 {
		return errors.New("token expire buffer cannot be negative")
	}

	// Refresh
	if c.Refresh.IntervalSeconds < MinRefreshInterval || c.Refresh.IntervalSeconds > MaxRefreshInterval {
		return errors.Errorf("refresh interval %ds out of range (%d-%d)",
			c.Refresh.IntervalSeconds, MinRefreshInterval, MaxRefreshInterval)
	}
	if c.Relay.SendBuffer <= 0 {
		return errors.New("relay send buffer must be greater than 0")
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return errors.New("connection string cannot be empty for postgres")
		}
	case "none":
	default:
		return errors.Errorf("unknown database type '%s'", c.Storage.DBType)
	}

	return nil
}

// -----------------------------------------------------------------------------

// HasCredentials reports whether the active server has an app key and secret
func (c *Config) HasCredentials() bool {
	s := c.Broker.ActiveServer()
	return s.AppKey != "" && s.SecretKey != ""
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path.
// Credentials are never written back.
func (c *Config) Save(configPath string) error {
	clean := *c.MConfig
	clean.Broker.Mock.AppKey, clean.Broker.Mock.SecretKey = "", ""
	clean.Broker.Real.AppKey, clean.Broker.Real.SecretKey = "", ""

	data, err := yaml.Marshal(&clean)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config to YAML")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config to file '%s'", configPath)
	}

	return nil
}
