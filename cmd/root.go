// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/internal/browser"
	"github.com/halilc4/tabby-mcp/internal/config"
	"github.com/halilc4/tabby-mcp/internal/observability"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string

	// cfg is populated by the root PersistentPreRunE before any
	// subcommand runs.
	cfg *config.Config
)

// rootCmd is the base command; every subcommand shares its configuration
// and logger bootstrap.
var rootCmd = &cobra.Command{
	Use:   "tabby-mcp",
	Short: "MCP server and CLI for Tabby's remote debugging endpoint",
	Long: `tabby-mcp bridges the Tabby terminal's Chrome DevTools endpoint to
MCP clients and to the command line: list debuggable tabs, evaluate
JavaScript in them, inspect and click DOM elements, and capture
screenshots. Start Tabby with remote debugging enabled (by default on
port 9222) before pointing anything at it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1. Assemble defaults, config file, environment and flags.
		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		// 2. Unmarshal and validate.
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		// 3. Initialize the logger. Console output goes to stderr so
		// serve can keep stdout for the protocol stream.
		observability.InitializeLogger(cfg.Logger)
		return nil
	},
}

// Execute runs the CLI. It accepts a context passed from main.go for
// graceful shutdown.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cancellation during shutdown is expected, not a failure.
		if ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("host", "", "devtools host (overrides config)")
	rootCmd.PersistentFlags().Int("port", 0, "devtools port (overrides config)")
	_ = viper.BindPFlag("devtools.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("devtools.port", rootCmd.PersistentFlags().Lookup("port"))

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newScreenshotCmd())
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig() error {
	// Set default values so the app can run with no config at all.
	config.SetDefaults(viper.GetViper())

	// 1. Config file search paths.
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// 2. Environment variables. Convenience short forms are bound next
	// to the structured names.
	viper.SetEnvPrefix("TABBY_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("devtools.host", "TABBY_MCP_HOST", "TABBY_MCP_DEVTOOLS_HOST")
	_ = viper.BindEnv("devtools.port", "TABBY_MCP_PORT", "TABBY_MCP_DEVTOOLS_PORT")

	// 3. Read the configuration file. A missing file is fine; defaults
	// and environment carry a bare install.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// closeConn detaches any sessions a CLI command dialed. Detach failures
// are log noise, not command failures.
func closeConn(conn *browser.Conn) {
	if err := conn.CloseAll(); err != nil {
		observability.GetLogger().Debug("Failed to detach sessions", zap.Error(err))
	}
}
