package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/superstore/config"
	"github.com/odvcencio/superstore/persist"
	"github.com/odvcencio/superstore/storage"
)

type rootOptions struct {
	configPath string
	envFile    string
	dir        string
	file       string
	format     string
	namespace  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "superstore",
		Short: "Inspect persisted store values",
		Long: `superstore reads and edits the local document that persistable stores
write to. Values are JSON; keys are "namespace:identifier" when a namespace
is set.

Settings come from --config (YAML), then .env and SUPERSTORE_* variables,
then flags.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "superstore.yaml", "config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "env file to load")
	flags.StringVar(&opts.dir, "dir", "", "directory holding the local document")
	flags.StringVar(&opts.file, "file", "", "local document name")
	flags.StringVar(&opts.format, "format", "", "document format: json, yaml or toml")
	flags.StringVarP(&opts.namespace, "namespace", "n", "", "key namespace")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newLsCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newRmCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(o.envFile); err != nil {
		return nil, err
	}
	if o.dir != "" {
		cfg.Dir = o.dir
	}
	if o.file != "" {
		cfg.File = o.file
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if o.namespace != "" {
		cfg.Namespace = o.namespace
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) open() (*config.Config, *storage.File, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	local, err := cfg.OpenLocal(storage.WithFileLogger(o.logger()))
	if err != nil {
		return nil, nil, err
	}
	return cfg, local, nil
}

func key(cfg *config.Config, identifier string) string {
	return persist.Init{Namespace: cfg.Namespace}.Key(identifier)
}
