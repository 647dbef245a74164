// Package main is the CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/knowledge"
)

var rootCmd = &cobra.Command{
	Use:   "formpilot",
	Short: "Confidence-driven form automation",
	Long: "CLI for answering survey questions automatically when confident, " +
		"deferring to a human otherwise, and learning from every answer",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to formpilot.yaml (default $FORMPILOT_CONFIG)")
	rootCmd.PersistentFlags().String("knowledge", "", "Override the knowledge file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log engine decisions to stderr")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json)")
}

// loadConfig resolves the config file and the --knowledge override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if kp, _ := cmd.Flags().GetString("knowledge"); kp != "" {
		cfg.Knowledge.Path = kp
	}
	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = knowledge.DefaultPath()
	}
	return cfg, nil
}

// newLogger writes warnings to stderr, or everything with --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func jsonOutput(cmd *cobra.Command) bool {
	out, _ := cmd.Flags().GetString("output")
	return out == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
