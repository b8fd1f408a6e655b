package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Repo   RepoConfig   `yaml:"repo"`
	Auth   AuthConfig   `yaml:"auth"`
	Edit   EditConfig   `yaml:"edit"`
	Site   SiteConfig   `yaml:"site"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RepoConfig identifies the remote repository holding the content document.
type RepoConfig struct {
	Owner    string `yaml:"owner"`
	Name     string `yaml:"name"`
	Branch   string `yaml:"branch"`
	DataFile string `yaml:"data_file"`
	Token    string `yaml:"token"`
	APIURL   string `yaml:"api_url"`
	// RawURL is the public, unauthenticated location of the published
	// document, used by the fallback loader for first paint.
	RawURL string `yaml:"raw_url"`
}

type AuthConfig struct {
	// PINHash is the SHA-256 hex digest of the workshop PIN. Empty means
	// authentication is unconfigured and must fail closed.
	PINHash       string        `yaml:"pin_hash"`
	TokenSecret   string        `yaml:"token_secret"`
	SessionTTL    time.Duration `yaml:"-"`
	MaxAttempts   int           `yaml:"max_attempts"`
	Lockout       time.Duration `yaml:"-"`
	AttemptWindow time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts duration strings ("24h", "15m") for the TTL and
// lockout knobs; absent keys keep their current values.
func (a *AuthConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		PINHash       string `yaml:"pin_hash"`
		TokenSecret   string `yaml:"token_secret"`
		SessionTTL    string `yaml:"session_ttl"`
		MaxAttempts   int    `yaml:"max_attempts"`
		Lockout       string `yaml:"lockout"`
		AttemptWindow string `yaml:"attempt_window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.PINHash != "" {
		a.PINHash = raw.PINHash
	}
	if raw.TokenSecret != "" {
		a.TokenSecret = raw.TokenSecret
	}
	if raw.MaxAttempts != 0 {
		a.MaxAttempts = raw.MaxAttempts
	}
	for _, d := range []struct {
		text   string
		target *time.Duration
	}{
		{raw.SessionTTL, &a.SessionTTL},
		{raw.Lockout, &a.Lockout},
		{raw.AttemptWindow, &a.AttemptWindow},
	} {
		if d.text == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.text)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.text, err)
		}
		*d.target = parsed
	}
	return nil
}

type EditConfig struct {
	UndoDepth int `yaml:"undo_depth"`
}

type SiteConfig struct {
	OutputDir string `yaml:"output_dir"`
	DataPath  string `yaml:"data_path"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Repo: RepoConfig{
			Branch:   "main",
			DataFile: "data.json",
			APIURL:   "https://api.github.com",
		},
		Auth: AuthConfig{
			SessionTTL:    24 * time.Hour,
			MaxAttempts:   5,
			Lockout:       15 * time.Minute,
			AttemptWindow: time.Hour,
		},
		Edit: EditConfig{
			UndoDepth: 50,
		},
		Site: SiteConfig{
			OutputDir: "public",
			DataPath:  "data.json",
		},
		DB: DBConfig{
			Path: "workbench.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("WORKBENCH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("WORKBENCH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("WORKBENCH_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WORKBENCH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if owner := os.Getenv("WORKBENCH_REPO_OWNER"); owner != "" {
		cfg.Repo.Owner = owner
	}
	if name := os.Getenv("WORKBENCH_REPO_NAME"); name != "" {
		cfg.Repo.Name = name
	}
	if branch := os.Getenv("WORKBENCH_REPO_BRANCH"); branch != "" {
		cfg.Repo.Branch = branch
	}
	if token := os.Getenv("WORKBENCH_GITHUB_TOKEN"); token != "" {
		cfg.Repo.Token = token
	}
	if hash := os.Getenv("WORKBENCH_PIN_HASH"); hash != "" {
		cfg.Auth.PINHash = hash
	}
	if secret := os.Getenv("WORKBENCH_TOKEN_SECRET"); secret != "" {
		cfg.Auth.TokenSecret = secret
	}
	if dbPath := os.Getenv("WORKBENCH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("WORKBENCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
