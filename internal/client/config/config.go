package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hm-skb/skb/internal/utils"
)

const (
	KeySourceFile           = "file"
	KeySourceSecretsManager = "aws-secretsmanager"

	// apiPrefix is stripped from legacy urls that pointed at the client api root
	apiPrefix = "/api/client/v1"
)

var (
	home, _           = os.UserHomeDir()
	DefaultStateDir   = filepath.Join(home, ".skb")
	DefaultConfigPath = filepath.Join(DefaultStateDir, "config.json")
	DefaultKeyPath    = filepath.Join(DefaultStateDir, "private.pem")
)

var (
	ErrNoServerURL   = errors.New("config: server url missing")
	ErrNoKeyPath     = errors.New("config: key path missing")
	ErrNoKeySecretID = errors.New("config: key secret id missing")
	ErrKeySource     = errors.New("config: unknown key source")
)

type Config struct {
	ServerURL     string `json:"server_url"`
	KeySource     string `json:"key_source,omitempty"`
	KeyPath       string `json:"key_path,omitempty"`
	KeySecretID   string `json:"key_secret_id,omitempty"`
	AWSRegion     string `json:"aws_region,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	StateDir      string `json:"state_dir,omitempty"`
	LogFile       string `json:"log_file,omitempty"`

	// LegacyURL is the `url` key of the original config.json layout.
	LegacyURL string `json:"url,omitempty"`
	Path      string `json:"-"`
}

// Validate normalizes the config in place and reports the first invalid field.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		c.ServerURL = c.LegacyURL
	}
	c.LegacyURL = ""

	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	c.ServerURL = strings.TrimSuffix(strings.TrimRight(c.ServerURL, "/"), apiPrefix)
	if err := utils.ValidateURL(c.ServerURL); err != nil {
		return fmt.Errorf("config: server url: %w", err)
	}

	if c.KeySource == "" {
		c.KeySource = KeySourceFile
	}

	switch c.KeySource {
	case KeySourceFile:
		if c.KeyPath == "" {
			return ErrNoKeyPath
		}
		keyPath, err := utils.ResolvePath(c.KeyPath)
		if err != nil {
			return fmt.Errorf("config: key path: %w", err)
		}
		c.KeyPath = keyPath
	case KeySourceSecretsManager:
		if c.KeySecretID == "" {
			return ErrNoKeySecretID
		}
	default:
		return fmt.Errorf("%w: %q", ErrKeySource, c.KeySource)
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	stateDir, err := utils.ResolvePath(c.StateDir)
	if err != nil {
		return fmt.Errorf("config: state dir: %w", err)
	}
	c.StateDir = stateDir

	if c.LogFile == "" {
		c.LogFile = DefaultLogFile(c.StateDir)
	}
	logFile, err := utils.ResolvePath(c.LogFile)
	if err != nil {
		return fmt.Errorf("config: log file: %w", err)
	}
	c.LogFile = logFile

	if c.Path != "" {
		path, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config: path: %w", err)
		}
		c.Path = path
	}

	return nil
}

// DefaultLogFile is where the log goes when log_file is not set.
func DefaultLogFile(stateDir string) string {
	return filepath.Join(stateDir, "logs", "skb.log")
}

// Save writes the config to c.Path. The file is private to the user since it
// points at key material.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config: path missing")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}
