package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/exitcode"
)

func newConfigCommand(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit configuration",
	}
	cmd.AddCommand(newConfigShowCommand(app))
	cmd.AddCommand(newConfigSetCommand(app))
	cmd.AddCommand(newConfigInitCommand(app))
	return cmd
}

func newConfigShowCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = app.IO.Out.Write(data)
			return err
		},
	}
}

func newConfigSetCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one config key in the config file",
		Long:  "Set updates a dotted key such as output.format or lyrics.enabled in the user config file (or the file given with --config), creating it from the template when missing.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(app)
			if err != nil {
				return err
			}
			if err := setConfigKey(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(app.IO.Out, "Set %s = %s in %s\n", args[0], args[1], path)
			return nil
		},
	}
}

func newConfigInitCommand(app *AppContext) *cobra.Command {
	force := false

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(app)
			if err != nil {
				return err
			}
			if err := config.EnsureConfigDir(path); err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				if app.Opts.NoInput || !isTTY(os.Stdin) {
					return fmt.Errorf("config already exists at %s (rerun with --force)", path)
				}
				confirmed, confirmErr := promptYesNo(app, fmt.Sprintf("Config already exists at %s. Overwrite?", path))
				if confirmErr != nil {
					return confirmErr
				}
				if !confirmed {
					fmt.Fprintln(app.IO.Out, "Initialization canceled.")
					return nil
				}
			}

			if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(app.IO.Out, "Wrote config: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	return cmd
}

func configFilePath(app *AppContext) (string, error) {
	if path := strings.TrimSpace(app.Opts.ConfigPath); path != "" {
		return path, nil
	}
	return config.UserConfigPath()
}

// setConfigKey edits the raw yaml document rather than round-tripping the
// typed Config so unset keys stay unset and keep tracking defaults.
func setConfigKey(path, key, rawValue string) error {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := yaml.Unmarshal([]byte(config.Template), &doc); err != nil {
			return fmt.Errorf("parse config template: %w", err)
		}
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	var value any
	if err := yaml.Unmarshal([]byte(rawValue), &value); err != nil {
		value = rawValue
	}

	parts := strings.Split(key, ".")
	node := doc
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	if err := validateDocument(doc); err != nil {
		return withExitCode(exitcode.InvalidUsage, fmt.Errorf("%s: %w", key, err))
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(path); err != nil {
		return err
	}
	return renameio.WriteFile(path, out, 0o644)
}

// validateDocument applies the edited document over the defaults and runs the
// normal validation, rejecting edits that would break the next run.
func validateDocument(doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	return config.Validate(cfg)
}
