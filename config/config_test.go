package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	result := getEnv("TEST_VAR", "default_value")
	if result != "test_value" {
		t.Errorf("getEnv() = %s, want %s", result, "test_value")
	}

	result = getEnv("NON_EXISTENT_VAR", "default_value")
	if result != "default_value" {
		t.Errorf("getEnv() = %s, want %s", result, "default_value")
	}

	t.Setenv("EMPTY_VAR", "")
	result = getEnv("EMPTY_VAR", "default_value")
	if result != "default_value" {
		t.Errorf("getEnv() = %s, want %s", result, "default_value")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("INT_VAR", "42")
	n, err := getEnvInt("INT_VAR", 7)
	if err != nil || n != 42 {
		t.Errorf("getEnvInt() = %d, %v, want 42", n, err)
	}

	n, err = getEnvInt("MISSING_INT_VAR", 7)
	if err != nil || n != 7 {
		t.Errorf("getEnvInt() = %d, %v, want default 7", n, err)
	}

	t.Setenv("BAD_INT_VAR", "not-a-number")
	if _, err := getEnvInt("BAD_INT_VAR", 7); err == nil {
		t.Error("getEnvInt() accepted non-numeric value")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("DUR_VAR", "250ms")
	d, err := getEnvDuration("DUR_VAR", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("getEnvDuration() = %v, %v, want 250ms", d, err)
	}

	t.Setenv("BAD_DUR_VAR", "forever")
	if _, err := getEnvDuration("BAD_DUR_VAR", time.Second); err == nil {
		t.Error("getEnvDuration() accepted unparsable value")
	}
}

func TestDefault(t *testing.T) {
	config := Default()

	if config.S3Region != "us-east-1" {
		t.Errorf("S3Region = %s, want us-east-1", config.S3Region)
	}
	if config.DownloadTimeout != 60*time.Second {
		t.Errorf("DownloadTimeout = %v, want 60s", config.DownloadTimeout)
	}
	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.RetryBackoff != time.Second || config.RetryMaxBackoff != 30*time.Second {
		t.Errorf("backoff = %v/%v, want 1s/30s", config.RetryBackoff, config.RetryMaxBackoff)
	}
	if config.Workers != 1 {
		t.Errorf("Workers = %d, want 1", config.Workers)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NVR_ADDRESS", "10.0.0.5")
	t.Setenv("NVR_PORT", "8443")
	t.Setenv("NVR_USERNAME", "admin")
	t.Setenv("NVR_PASSWORD", "secret")
	t.Setenv("NVR_LEGACY", "true")
	t.Setenv("S3_BUCKET", "footage")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("DOWNLOAD_WAIT", "2s")

	config := Default()
	if err := config.applyEnv(); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if config.Address != "10.0.0.5" || config.Port != 8443 {
		t.Errorf("address = %s:%d, want 10.0.0.5:8443", config.Address, config.Port)
	}
	if config.Username != "admin" || config.Password != "secret" {
		t.Errorf("credentials = %s/%s", config.Username, config.Password)
	}
	if !config.Legacy {
		t.Error("Legacy = false, want true")
	}
	if config.S3Bucket != "footage" {
		t.Errorf("S3Bucket = %s, want footage", config.S3Bucket)
	}
	if config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", config.MaxRetries)
	}
	if config.DownloadWait != 2*time.Second {
		t.Errorf("DownloadWait = %v, want 2s", config.DownloadWait)
	}
	// Untouched fields keep their defaults.
	if config.S3Region != "us-east-1" || config.Workers != 1 {
		t.Errorf("defaults clobbered: region=%s workers=%d", config.S3Region, config.Workers)
	}
}

func TestApplyEnvInvalidValue(t *testing.T) {
	t.Setenv("NVR_PORT", "not-a-port")

	config := Default()
	if err := config.applyEnv(); err == nil {
		t.Error("applyEnv() accepted invalid NVR_PORT")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
address: nvr.local
username: operator
verify_ssl: true
s3_bucket: archive
s3_prefix: cams
status_csv_dir: /var/log/camarchive
download_timeout: 90s
retry_backoff: 500ms
workers: 4
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	config := Default()
	config.Password = "from-env"
	if err := config.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if config.Address != "nvr.local" || config.Username != "operator" {
		t.Errorf("connection = %s/%s", config.Address, config.Username)
	}
	if !config.VerifySSL {
		t.Error("VerifySSL = false, want true")
	}
	if config.S3Bucket != "archive" || config.S3Prefix != "cams" {
		t.Errorf("s3 = %s/%s", config.S3Bucket, config.S3Prefix)
	}
	if config.StatusCSVDir != "/var/log/camarchive" {
		t.Errorf("StatusCSVDir = %s", config.StatusCSVDir)
	}
	if config.DownloadTimeout != 90*time.Second || config.RetryBackoff != 500*time.Millisecond {
		t.Errorf("durations = %v/%v", config.DownloadTimeout, config.RetryBackoff)
	}
	if config.Workers != 4 {
		t.Errorf("Workers = %d, want 4", config.Workers)
	}
	// Fields the file omits survive the merge.
	if config.Password != "from-env" {
		t.Errorf("Password = %s, want from-env", config.Password)
	}
	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", config.MaxRetries)
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("download_timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	config := Default()
	if err := config.LoadFile(path); err == nil {
		t.Error("LoadFile() accepted unparsable duration")
	}
}

func TestLoadFileMissing(t *testing.T) {
	config := Default()
	if err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile() succeeded on missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"complete", func(c *Config) {
			c.Address = "nvr.local"
			c.Username = "admin"
			c.Password = "secret"
		}, false},
		{"missing address", func(c *Config) {
			c.Username = "admin"
			c.Password = "secret"
		}, true},
		{"missing username", func(c *Config) {
			c.Address = "nvr.local"
			c.Password = "secret"
		}, true},
		{"missing password", func(c *Config) {
			c.Address = "nvr.local"
			c.Username = "admin"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
