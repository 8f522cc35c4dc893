// Command boombot runs the sector stock recommendation bot and its HTTP API.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"boombot/internal/config"
	"boombot/internal/logging"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "boombot",
		Short:        "Telegram bot suggesting Indian stocks by sector",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: $BOOMBOT_CONFIG or <config-dir>/config.yaml)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files read before the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newFormatCmd(),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: o.configPath, EnvFiles: o.envFiles})
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// consoleLogger is used by the offline subcommands, which never write log files.
func (o *rootOptions) consoleLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return logging.NewConsoleLogger(w, cfg.Log.Level, cfg.Log.Format)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the boombot version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boombot %s\n", version)
		},
	}
}
