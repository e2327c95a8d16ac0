package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hm-skb/skb/internal/client/config"
	"github.com/hm-skb/skb/internal/utils"
	"github.com/hm-skb/skb/internal/version"
)

const envPrefix = "SKB"

var home, _ = os.UserHomeDir()

// logCloser releases the log file opened by setupLogging.
var logCloser io.Closer = nopCloser{}

var rootCmd = &cobra.Command{
	Use:           "skb",
	Short:         "SKB backup client",
	Long:          "Keeps local files in sync with an SKB backup server.",
	Version:       version.Detailed(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		closer, err := setupLogging(verbosity, viper.GetString("log_file"), viper.GetString("state_dir"))
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "SKB config file")
	rootCmd.PersistentFlags().StringP("server", "s", "", "SKB server url")
	rootCmd.PersistentFlags().String("key", "", "PEM file with the client private key")
	rootCmd.PersistentFlags().BoolP("allow-insecure", "k", false, "Accept invalid TLS certificates")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbose output, repeat for more (-vvv)")
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logCloser.Close()

	if err != nil {
		slog.Error("skb failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s %s\n", red.Render("ERROR"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	// .env in the working directory is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	configPath := resolveConfigPath(cmd)
	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	// Bind flags to viper
	flags := cmd.Root().PersistentFlags()
	viper.BindPFlag("server_url", flags.Lookup("server"))
	viper.BindPFlag("key_path", flags.Lookup("key"))
	viper.BindPFlag("allow_insecure", flags.Lookup("allow-insecure"))

	// Set up environment variables
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	return nil
}

// setupLogging writes to stderr at the requested verbosity and keeps a debug
// log in logFile, or under stateDir when logFile is empty. 0 warn, 1 info,
// 2 debug, 3 debug with source.
func setupLogging(verbosity int, logFile, stateDir string) (io.Closer, error) {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}

	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		AddSource:  verbosity >= 3,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if logFile == "" {
		if stateDir == "" {
			stateDir = config.DefaultStateDir
		}
		if resolved, err := utils.ResolvePath(stateDir); err == nil {
			stateDir = resolved
		}
		logFile = config.DefaultLogFile(stateDir)
	}

	if err := utils.EnsureParent(logFile); err != nil {
		slog.SetDefault(slog.New(stderrHandler))
		slog.Warn("log file disabled", "path", logFile, "error", err)
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.SetDefault(slog.New(stderrHandler))
		slog.Warn("log file disabled", "path", logFile, "error", err)
		return nopCloser{}, nil
	}

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))
	return closeAll{logInterceptor, file}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closeAll []io.Closer

func (c closeAll) Close() error {
	var errs []error
	for _, closer := range c {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
