package cli

import (
	"fmt"
	"strings"
	"time"

	"threadshelf/internal/config"
	"threadshelf/internal/format"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the global config (~/.threadshelf/config.yaml)",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

type configView struct {
	Effective config.Resolved `json:"effective"`
	File      map[string]any  `json:"file"`
}

func (v configView) Text(time.Time) string {
	key := "-"
	if v.Effective.GeminiKeySet {
		key = "(set)"
	}
	rows := [][]string{
		{"dataDir", v.Effective.DataDir},
		{"backend", v.Effective.Backend},
		{"logLevel", v.Effective.LogLevel},
		{"gemini.model", emptyAsDash(v.Effective.GeminiModel)},
		{"gemini.apiKey", key},
		{"tui.theme", v.Effective.Theme},
	}
	return "config: " + v.Effective.ConfigPath + "\n\n" + format.Table([]string{"KEY", "VALUE"}, rows)
}

func newConfigShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := map[string]any{}
			for _, k := range config.Keys {
				v, _ := app.cfg.Get(k)
				if v == "" {
					continue
				}
				if k == "gemini.apiKey" {
					v = maskSecret(v)
				}
				file[k] = v
			}
			return writeResult(cmd, app, configView{Effective: app.settings, File: file})
		},
	}
	return cmd
}

func newConfigSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value (" + strings.Join(config.Keys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if err := app.cfg.Set(key, args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(app.cfg); err != nil {
				return writeErr(cmd, fmt.Errorf("save config: %w", err))
			}
			v, _ := app.cfg.Get(key)
			if key == "gemini.apiKey" {
				v = maskSecret(v)
			}
			return writeResult(cmd, app, map[string]any{"key": key, "value": v})
		},
	}
	return cmd
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func emptyAsDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
