package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hm-skb/skb/internal/client/config"
	"github.com/hm-skb/skb/internal/utils"
)

const legacyConfigFile = "config.json"

// resolveConfigPath determines which config file path to use, honoring (in order):
// 1) An explicitly set --config flag
// 2) SKB_CONFIG_PATH environment variable
// 3) Existing config files in common locations
// 4) A legacy config.json beside the binary or in the working directory
// 5) The default path
func resolveConfigPath(cmd *cobra.Command) string {
	if cfgFlag := cmd.Flag("config"); cfgFlag != nil && cfgFlag.Changed {
		return cfgFlag.Value.String()
	}

	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		return envPath
	}

	candidates := []string{
		filepath.Join(home, ".skb", "config.json"),
		filepath.Join(home, ".config", "skb", "config.json"),
	}
	candidates = append(candidates, legacyDirs(legacyConfigFile)...)

	for _, candidate := range candidates {
		if utils.FileExists(candidate) {
			return candidate
		}
	}

	return config.DefaultConfigPath
}

// legacyDirs joins name onto the binary dir and the working dir.
func legacyDirs(name string) []string {
	var paths []string
	if exeDir, err := utils.ExecutableDir(); err == nil {
		paths = append(paths, filepath.Join(exeDir, name))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, name))
	}
	return paths
}
