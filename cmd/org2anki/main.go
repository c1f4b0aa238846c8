// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the org2anki CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the org2anki CLI.
var rootCmd = &cobra.Command{
	Use:   "org2anki",
	Short: "Convert org-mode notes into Anki flashcard import files",
	Long: `org2anki reads org-mode documents and writes flashcard import files.
Leaf headings become basic cards with the heading as the question and the
body as the answer; emphasized spans become cloze deletions.

Each source file produces a directory holding card.txt and cloze.txt,
ready for the flashcard application's text importer.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./org2anki.yaml or ~/.config/org2anki/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("org2anki")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "org2anki"))
		}
	}

	viper.SetEnvPrefix("ORG2ANKI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the diagnostics logger: warnings and errors by default,
// everything with --verbose.
func newLogger() *log.Logger {
	level := log.WarnLevel
	if viper.GetBool("verbose") {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "org2anki",
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
