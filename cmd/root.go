// Package cmd implements the shieldai command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Abdullahalhasan627/ShieldAI/config"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "shieldai",
	Short: "Train a gradient-boosted classifier and export it as ONNX",
	Long: `ShieldAI trains a LightGBM-style binary classifier on synthetic data,
exports the fitted ensemble as an ONNX TreeEnsembleClassifier, and keeps
a registry of training runs for comparison.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// loadConfig reads the config flag, falling back to built-in defaults when
// no file is given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// setupLogging routes structured logs to stderr at the configured level.
func setupLogging(cfg *config.Config) {
	log.SetProvider(log.NewProvider(os.Stderr))
	if verbose {
		log.SetLevel(log.LevelDebug)
		return
	}
	log.SetLevel(log.ToLogLevel(cfg.Logging.Level))
}
