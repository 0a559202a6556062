package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-editor/atelier/pkg/atelier/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "atelier",
		Short: "Local engine for a browser-based code workspace",
		Long: `Atelier hosts code projects as in-memory file trees backed by a local
database, and serves them to a browser editor over HTTP and WebSocket.

Examples:
  atelier serve                     # Start the workspace API server
  atelier projects list             # List stored projects
  atelier projects create my-app    # Create an empty project
  atelier import my-app src.zip     # Import a zip archive into a project
  atelier export my-app out.zip     # Export a project as a zip archive
  atelier edit my-app               # Open a project in the terminal editor
  atelier config show               # Show effective configuration`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/atelier/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "database directory override")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "atelier"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "atelier"))
		}
	}

	viper.SetEnvPrefix("ATELIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", config.DefaultDataDir())
	viper.SetDefault("server.listen_addr", config.DefaultListenAddr)
	viper.SetDefault("server.allowed_origins", config.DefaultAllowedOrigins)
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("journal.path", config.DefaultJournalDir())
	viper.SetDefault("journal.retention_days", config.DefaultJournalRetentionDays)
	viper.SetDefault("logging.level", config.DefaultLogLevel)

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the full configuration, with flag overrides already
// bound into viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir := viper.GetString("data_dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
