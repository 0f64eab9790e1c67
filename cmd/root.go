// Package cmd provides the command-line interface for notekiln with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--output, --template, etc.) - highest priority
//	2. NOTEKILN_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (NOTEKILN_OUTPUT, NOTEKILN_MAX_WORKERS, etc.)
//	4. Configuration files (.notekiln.yml) - lowest priority
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notekiln",
	Short: "Export marimo notebooks to a static HTML site",
	Long: `Notekiln exports marimo notebooks to static HTML and assembles the
results into a single index page.

Notebooks are discovered per kind from their source directories:
  notebooks/       exported as static HTML documents
  notebooks_wasm/  exported as editable WebAssembly notebooks
  apps/            exported as read-only WebAssembly apps

Quick Start:
  notekiln export                 Export all notebooks and write the index
  notekiln watch                  Re-export whenever sources change
  notekiln version                Show version information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .notekiln.yml, can also use NOTEKILN_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. NOTEKILN_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .notekiln.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("NOTEKILN_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".notekiln")
	}

	viper.SetEnvPrefix("NOTEKILN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is not an error; defaults apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
