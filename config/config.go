package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob of the archiver. Values come from an optional
// YAML file, a .env file, and environment variables, in that order of
// increasing precedence; command-line flags override on top.
type Config struct {
	// NVR connection
	Address   string
	Port      int
	Username  string
	Password  string
	VerifySSL bool
	Legacy    bool

	// Remote mirroring; enabled when S3Bucket is set
	S3Bucket     string
	S3Prefix     string
	S3Region     string
	S3Endpoint   string
	AWSAccessKey string
	AWSSecretKey string

	// Daily status CSV files; enabled when set
	StatusCSVDir string

	// Download behavior
	DownloadTimeout time.Duration
	DownloadWait    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryMaxBackoff time.Duration
	Workers         int
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		S3Region:        "us-east-1",
		DownloadTimeout: 60 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
		Workers:         1,
	}
}

// Load reads configuration from a .env file (if present) and environment
// variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using environment variables only")
	}

	config := Default()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// yamlConfig mirrors Config for file loading, with durations as strings.
type yamlConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	VerifySSL *bool  `yaml:"verify_ssl"`
	Legacy    *bool  `yaml:"legacy"`

	S3Bucket     string `yaml:"s3_bucket"`
	S3Prefix     string `yaml:"s3_prefix"`
	S3Region     string `yaml:"s3_region"`
	S3Endpoint   string `yaml:"s3_endpoint"`
	AWSAccessKey string `yaml:"aws_access_key_id"`
	AWSSecretKey string `yaml:"aws_secret_access_key"`

	StatusCSVDir string `yaml:"status_csv_dir"`

	DownloadTimeout string `yaml:"download_timeout"`
	DownloadWait    string `yaml:"download_wait"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryBackoff    string `yaml:"retry_backoff"`
	RetryMaxBackoff string `yaml:"retry_max_backoff"`
	Workers         int    `yaml:"workers"`
}

// LoadFile merges settings from a YAML config file into c. Fields the file
// omits keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.Address != "" {
		c.Address = yc.Address
	}
	if yc.Port != 0 {
		c.Port = yc.Port
	}
	if yc.Username != "" {
		c.Username = yc.Username
	}
	if yc.Password != "" {
		c.Password = yc.Password
	}
	if yc.VerifySSL != nil {
		c.VerifySSL = *yc.VerifySSL
	}
	if yc.Legacy != nil {
		c.Legacy = *yc.Legacy
	}
	if yc.S3Bucket != "" {
		c.S3Bucket = yc.S3Bucket
	}
	if yc.S3Prefix != "" {
		c.S3Prefix = yc.S3Prefix
	}
	if yc.S3Region != "" {
		c.S3Region = yc.S3Region
	}
	if yc.S3Endpoint != "" {
		c.S3Endpoint = yc.S3Endpoint
	}
	if yc.AWSAccessKey != "" {
		c.AWSAccessKey = yc.AWSAccessKey
	}
	if yc.AWSSecretKey != "" {
		c.AWSSecretKey = yc.AWSSecretKey
	}
	if yc.StatusCSVDir != "" {
		c.StatusCSVDir = yc.StatusCSVDir
	}
	if yc.MaxRetries != 0 {
		c.MaxRetries = yc.MaxRetries
	}
	if yc.Workers != 0 {
		c.Workers = yc.Workers
	}

	for _, d := range []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{yc.DownloadTimeout, "download_timeout", &c.DownloadTimeout},
		{yc.DownloadWait, "download_wait", &c.DownloadWait},
		{yc.RetryBackoff, "retry_backoff", &c.RetryBackoff},
		{yc.RetryMaxBackoff, "retry_max_backoff", &c.RetryMaxBackoff},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.Address = getEnv("NVR_ADDRESS", c.Address)
	c.Username = getEnv("NVR_USERNAME", c.Username)
	c.Password = getEnv("NVR_PASSWORD", c.Password)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Prefix = getEnv("S3_PREFIX", c.S3Prefix)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.AWSAccessKey = getEnv("AWS_ACCESS_KEY_ID", c.AWSAccessKey)
	c.AWSSecretKey = getEnv("AWS_SECRET_ACCESS_KEY", c.AWSSecretKey)
	c.StatusCSVDir = getEnv("STATUS_CSV_DIR", c.StatusCSVDir)

	var err error
	if c.Port, err = getEnvInt("NVR_PORT", c.Port); err != nil {
		return err
	}
	if c.VerifySSL, err = getEnvBool("NVR_VERIFY_SSL", c.VerifySSL); err != nil {
		return err
	}
	if c.Legacy, err = getEnvBool("NVR_LEGACY", c.Legacy); err != nil {
		return err
	}
	if c.MaxRetries, err = getEnvInt("MAX_RETRIES", c.MaxRetries); err != nil {
		return err
	}
	if c.Workers, err = getEnvInt("WORKERS", c.Workers); err != nil {
		return err
	}
	if c.DownloadTimeout, err = getEnvDuration("DOWNLOAD_TIMEOUT", c.DownloadTimeout); err != nil {
		return err
	}
	if c.DownloadWait, err = getEnvDuration("DOWNLOAD_WAIT", c.DownloadWait); err != nil {
		return err
	}
	if c.RetryBackoff, err = getEnvDuration("RETRY_BACKOFF", c.RetryBackoff); err != nil {
		return err
	}
	if c.RetryMaxBackoff, err = getEnvDuration("RETRY_MAX_BACKOFF", c.RetryMaxBackoff); err != nil {
		return err
	}

	return nil
}

// Validate checks the fields every NVR-facing command needs.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("config: NVR address is required")
	}
	if c.Username == "" {
		return errors.New("config: NVR username is required")
	}
	if c.Password == "" {
		return errors.New("config: NVR password is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
