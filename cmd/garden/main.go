package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/config"
	"github.com/SmritiSatyan/garden/internal/log"
)

var (
	logLevel    string
	logFormat   string
	configPath  string
	projectPath string

	globalCfg = &config.Config{}
)

var rootCmd = &cobra.Command{
	Use:               "garden",
	Short:             "Run and supervise project actions",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "", "log level: error, warn, info, verbose or debug")
	pf.StringVar(&logFormat, "log-format", "", "log format: text, logfmt or json")
	pf.StringVar(&configPath, "config", config.DefaultPath(), "path to the user config file")
	pf.StringVarP(&projectPath, "project", "p", ".", "project file, or a directory to search upwards from")
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	globalCfg = cfg

	level := firstNonEmpty(logLevel, cfg.LogLevel, string(log.LevelInfo))
	format := firstNonEmpty(logFormat, cfg.LogFormat, string(log.DefaultFormat(os.Stderr)))

	handler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
