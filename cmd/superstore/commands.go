package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/odvcencio/superstore/config"
	"github.com/odvcencio/superstore/storage"
)

const maxValueWidth = 60

func newLsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List keys and values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, local, err := opts.open()
			if err != nil {
				return err
			}
			return listKeys(cmd.OutOrStdout(), cfg, local)
		},
	}
}

func listKeys(w io.Writer, cfg *config.Config, local *storage.File) error {
	prefix := ""
	if cfg.Namespace != "" {
		prefix = cfg.Namespace + ":"
	}
	var keys []string
	width := 0
	for _, k := range local.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		keys = append(keys, k)
		if kw := runewidth.StringWidth(k); kw > width {
			width = kw
		}
	}
	for _, k := range keys {
		value, _, err := local.GetItem(k)
		if err != nil {
			return err
		}
		value = runewidth.Truncate(value, maxValueWidth, "…")
		if _, err := fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(k, width), value); err != nil {
			return err
		}
	}
	return nil
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	var color bool
	cmd := &cobra.Command{
		Use:   "get <identifier>",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, local, err := opts.open()
			if err != nil {
				return err
			}
			return getValue(cmd.OutOrStdout(), local, key(cfg, args[0]), color)
		},
	}
	cmd.Flags().BoolVar(&color, "color", false, "highlight JSON output")
	return cmd
}

func getValue(w io.Writer, local *storage.File, k string, color bool) error {
	raw, ok, err := local.GetItem(k)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("key %q not found", k)
	}
	pretty := raw
	var v any
	if json.Unmarshal([]byte(raw), &v) == nil {
		if data, err := json.MarshalIndent(v, "", "  "); err == nil {
			pretty = string(data)
		}
	}
	if color {
		if err := quick.Highlight(w, pretty+"\n", "json", "terminal256", "monokai"); err != nil {
			return fmt.Errorf("highlight: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(w, pretty)
	return err
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <identifier> <json>",
		Short: "Store a JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, local, err := opts.open()
			if err != nil {
				return err
			}
			return setValue(local, key(cfg, args[0]), args[1])
		},
	}
}

func setValue(local *storage.File, k, raw string) error {
	if !json.Valid([]byte(raw)) {
		return fmt.Errorf("value for %q is not valid JSON", k)
	}
	return local.SetItem(k, raw)
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <identifier>...",
		Short: "Remove stored keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, local, err := opts.open()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := local.RemoveItem(key(cfg, id)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print keys changed by other writers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			local, err := cfg.OpenLocal(storage.WithFileLogger(opts.logger()))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			err = local.Watch(ctx, func(keys []string) {
				for _, k := range keys {
					value, ok, _ := local.GetItem(k)
					if !ok {
						fmt.Fprintf(out, "- %s\n", k)
						continue
					}
					fmt.Fprintf(out, "~ %s %s\n", k, runewidth.Truncate(value, maxValueWidth, "…"))
				}
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
