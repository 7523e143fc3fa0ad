package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
)

var (
	configInitTOML  bool
	configInitForce bool
)

func init() {
	configInitCmd.Flags().BoolVar(&configInitTOML, "toml", false, "Write config.toml instead of config.yml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `Configuration is read from ~/.config/citegraph/config.yml (or config.toml),
then overridden by a .env file and CITEGRAPH_* environment variables.

Keys:
  server          Backend URL (default http://localhost:5000)
  width, height   Viewport size in pixels (default 800x550)
  timeout         Request timeout (default 30s)
  rate_limit      Maximum requests per second (0 disables)
  layout          force or circular
  show_labels     Show node labels
  cache_db        Snapshot cache path
  keep_snapshots  Snapshots kept after each fetch (0 keeps all)
  listen          Address for cg serve`,
}

// ConfigResponse is the response for config show.
type ConfigResponse struct {
	Path string `json:"path"`
	*config.Config
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		path := configPath
		if path == "" {
			path = config.Path()
		}
		if !humanOutput {
			return outputJSON(ConfigResponse{Path: path, Config: cfg})
		}
		subtleStyle.Printf("# %s\n", path)
		fmt.Printf("server:          %s\n", cfg.Server)
		fmt.Printf("width x height:  %gx%g\n", cfg.Width, cfg.Height)
		fmt.Printf("timeout:         %s\n", cfg.Timeout)
		fmt.Printf("rate_limit:      %g\n", cfg.RateLimit)
		fmt.Printf("layout:          %s\n", cfg.Layout)
		fmt.Printf("show_labels:     %t\n", cfg.ShowLabels)
		fmt.Printf("cache_db:        %s\n", cfg.CacheDB)
		fmt.Printf("keep_snapshots:  %d\n", cfg.KeepSnapshots)
		fmt.Printf("listen:          %s\n", cfg.Listen)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			name := config.ConfigFile
			if configInitTOML {
				name = config.TOMLConfigFile
			}
			path = filepath.Join(config.Dir(), name)
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
		}

		cfg := config.Default()
		if serverFlag != "" {
			cfg.Server = serverFlag
		}
		if err := cfg.Validate(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		if humanOutput {
			fmt.Printf("%s %s\n", successStyle.Sprint("Created"), path)
			return nil
		}
		return outputJSON(map[string]string{"status": "created", "path": path})
	},
}
