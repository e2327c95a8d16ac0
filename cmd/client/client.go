package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/hm-skb/skb/internal/client/config"
	"github.com/hm-skb/skb/internal/client/identity"
	"github.com/hm-skb/skb/internal/client/sync"
	"github.com/hm-skb/skb/internal/skbsdk"
	"github.com/hm-skb/skb/internal/utils"
)

// skbClient is everything a command needs to talk to the server.
type skbClient struct {
	cfg     *config.Config
	sdk     *skbsdk.SDK
	engine  *sync.SyncEngine
	servers *sync.ServerManager
}

// buildConfig collects flags, env and the config file into a validated config.
func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Path:          viper.ConfigFileUsed(),
		ServerURL:     viper.GetString("server_url"),
		LegacyURL:     viper.GetString("url"),
		KeySource:     viper.GetString("key_source"),
		KeyPath:       viper.GetString("key_path"),
		KeySecretID:   viper.GetString("key_secret_id"),
		AWSRegion:     viper.GetString("aws_region"),
		AllowInsecure: viper.GetBool("allow_insecure"),
		StateDir:      viper.GetString("state_dir"),
		LogFile:       viper.GetString("log_file"),
	}

	if cfg.KeyPath == "" && (cfg.KeySource == "" || cfg.KeySource == config.KeySourceFile) {
		cfg.KeyPath = defaultKeyPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultKeyPath prefers ~/.skb/private.pem, then private.pem beside the
// binary, then in the working directory.
func defaultKeyPath() string {
	if utils.FileExists(config.DefaultKeyPath) {
		return config.DefaultKeyPath
	}

	exeDir, _ := utils.ExecutableDir()
	cwd, _ := os.Getwd()
	if path, err := identity.LegacyKeyPath(exeDir, cwd); err == nil {
		return path
	}
	return config.DefaultKeyPath
}

func keySource(ctx context.Context, cfg *config.Config) (identity.KeySource, error) {
	switch cfg.KeySource {
	case config.KeySourceSecretsManager:
		return identity.NewSecretsManagerSource(ctx, cfg.AWSRegion, cfg.KeySecretID)
	default:
		return identity.NewFileSource(cfg.KeyPath), nil
	}
}

// newClient loads the key once and wires the sdk into the sync engine.
func newClient(ctx context.Context) (*skbClient, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	src, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	key, err := src.PrivateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	signer, err := skbsdk.NewSigner(key)
	if err != nil {
		return nil, err
	}

	sdk, err := skbsdk.New(&skbsdk.SDKConfig{
		BaseURL:       cfg.ServerURL,
		AllowInsecure: cfg.AllowInsecure,
	}, signer)
	if err != nil {
		return nil, err
	}

	slog.Debug("client ready", "server", cfg.ServerURL, "keySource", cfg.KeySource, "config", cfg.Path)

	return &skbClient{
		cfg:     cfg,
		sdk:     sdk,
		engine:  sync.NewSyncEngine(sdk.Info, sdk.Files, afero.NewOsFs()),
		servers: sync.NewServerManager(sdk.Info, sdk.Servers),
	}, nil
}
