// Package cli implements the voiceorder command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-voiceorder/internal/config"
	"github.com/teslashibe/go-voiceorder/internal/log"
	"github.com/teslashibe/go-voiceorder/internal/output"
)

// Package-level shared dependencies, initialized before every command.
var (
	ui     *output.UI
	cfg    *config.Config
	logger *slog.Logger

	cfgFile string
	verbose bool

	buildVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "voiceorder",
	Short: "Voice ordering assistant",
	Long: `voiceorder turns push-to-talk speech or typed messages into cart lines.
It records an utterance, transcribes it, extracts order items with a language
model and merges them into the cart against the menu.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// Execute is the main entry point called from main.go.
func Execute(version string) {
	if version != "" {
		buildVersion = version
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/voiceorder/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(serveCmd, sayCmd, catalogCmd, versionCmd)
}

func setup(out, errOut io.Writer) error {
	c, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log.Init(level)
	logger = log.New(errOut, level, os.Getenv("GO_ENV") == "production")

	ui = &output.UI{Verbose: verbose, Out: out, ErrOut: errOut}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "voiceorder", buildVersion)
	},
}
