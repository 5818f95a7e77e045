package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timeseries/internal/config"
	"github.com/derickschaefer/timeseries/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage timeseries configuration",
	Long:  `Read and write timeseries configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Set zone to the IANA zone your calendar steps should follow.")
		fmt.Fprintln(out, "  Set db_path to enable presets.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.Zone)
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		throttle := cfg.Throttle
		if throttle == "" {
			throttle = "(none)"
		}
		dbPath := cfg.DBPath
		if dbPath == "" {
			dbPath = "(not set)"
		}

		format := cfg.Format
		if globalFlags.Format != "" {
			format = globalFlags.Format
		}

		switch format {
		case render.FormatJSON:
			type configOut struct {
				Zone       string `json:"zone"`
				Format     string `json:"default_format"`
				TimeFormat string `json:"time_format"`
				Throttle   string `json:"throttle"`
				DBPath     string `json:"db_path"`
				ConfigFile string `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				Zone:       cfg.Zone,
				Format:     cfg.Format,
				TimeFormat: cfg.TimeFormat,
				Throttle:   cfg.Throttle,
				DBPath:     cfg.DBPath,
				ConfigFile: src,
			})
		default:
			printKVTable(cmd.OutOrStdout(), [][]string{
				{"zone", cfg.Zone},
				{"default_format", cfg.Format},
				{"time_format", cfg.TimeFormat},
				{"throttle", throttle},
				{"db_path", dbPath},
				{"config_file", src},
			})
			return nil
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  timeseries config set zone America/Denver
  timeseries config set time_format 3
  timeseries config set db_path ~/.timeseries.db`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])

		// Load existing file or start from template
		path := config.DefaultConfigFile
		f := config.Template()
		if existing, err := config.ReadFile(path); err == nil {
			f = *existing
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
