// Command pipedream is an interactive Go expression shell whose results are
// rendered as values, lists, tables or raw text.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pipedream/internal/config"
	"pipedream/internal/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pipedream",
	Short: "pipedream - a Go expression shell with structured output",
	Long: `pipedream evaluates one Go expression at a time in an embedded interpreter
and renders the result: a value, a list, a table synthesized from records, or
the raw output of a shell command (lines starting with '!').

Run without arguments to start the interactive prompt.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive prompt owns the terminal; it logs to files only.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInteractive,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pipedream version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pipedream %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.pipedream/config.yaml)")

	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "Write the result as JSON")

	rootCmd.AddCommand(evalCmd, versionCmd)
}

// resolveWorkspace returns the absolute workspace directory.
func resolveWorkspace() (string, error) {
	ws := workspace
	if ws == "" {
		var err error
		if ws, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("failed to resolve workspace: %w", err)
		}
	}
	return filepath.Abs(ws)
}

// loadConfig loads and validates the config, then starts file logging.
func loadConfig() (*config.Config, string, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, "", err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(ws, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
		Categories: cfg.Logging.Categories,
	}); err != nil {
		// logging is best effort
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	logging.Boot("pipedream %s starting: workspace=%s config=%s", Version, ws, path)
	return cfg, path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
