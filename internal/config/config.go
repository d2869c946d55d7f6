package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Features  FeaturesConfig  `toml:"features"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	DataDir   string `toml:"data_dir"`
	PublicDir string `toml:"public_dir"`
}

type AuthConfig struct {
	APIKey        string `toml:"api_key"`
	TrustLoopback bool   `toml:"trust_loopback"`
	PasswordHash  string `toml:"password_hash"`
	CookieSecret  string `toml:"cookie_secret"`
}

type FeaturesConfig struct {
	ManualTasks bool `toml:"manual_tasks"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
}

func Default() Config {
	return Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 7777, DataDir: "data", PublicDir: "public"},
		Auth:     AuthConfig{TrustLoopback: true},
		Features: FeaturesConfig{ManualTasks: true},
	}
}

// SessionsEnabled reports whether the password-login variant is configured.
func (c Config) SessionsEnabled() bool {
	return c.Auth.PasswordHash != "" && c.Auth.CookieSecret != ""
}

var ErrInvalid = errors.New("invalid config")

type LoadResult struct {
	Config     Config
	Found      bool
	Path       string
	ParseError error
}

// Load reads the TOML config at path over the defaults. A missing file is
// not an error; fields absent from the file keep their default values.
func Load(path string) LoadResult {
	res := LoadResult{Config: Default(), Path: path}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res
		}
		res.ParseError = err
		return res
	}

	res.Found = true
	if err := toml.Unmarshal(b, &res.Config); err != nil {
		res.Config = Default()
		res.ParseError = fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return res
}

// ApplyEnv overlays environment variables on cfg. Set variables always win
// over file values, matching the deployment bootstrap that writes them to
// .env.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("EXECUTIVE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("EXECUTIVE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("EXECUTIVE_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("EXECUTIVE_PUBLIC_DIR"); v != "" {
		cfg.Server.PublicDir = v
	}
	if v := os.Getenv("EXECUTIVE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("EXECUTIVE_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := os.Getenv("EXECUTIVE_COOKIE_SECRET"); v != "" {
		cfg.Auth.CookieSecret = v
	}
	if v := os.Getenv("EXECUTIVE_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}
