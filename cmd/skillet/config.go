package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/paths"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change skillet settings",
	Long: `Read and change settings in the user config file. Effective values are
layered: flags, SKILLET_* environment variables, the config file, defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := configFile()
		if err != nil {
			return err
		}
		entry, err := f.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(entry.Value))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to the config file",
	Long: `Write a setting to the config file. The value is parsed as YAML, so numbers,
booleans and lists keep their type.

Examples:
  skillet config set model claude-opus-latest
  skillet config set retry.attempts 5
  skillet config set providers.openai.base_url http://localhost:8080/v1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := configFile()
		if err != nil {
			return err
		}
		if err := f.Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Set %s", args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		return listConfigCmd(cmd, format)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset [key]",
	Short: "Remove a setting, or the whole config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		return resetConfigCmd(cmd, key, yes)
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $VISUAL or $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := configFile()
		if err != nil {
			return err
		}
		if err := f.Ensure(); err != nil {
			return err
		}
		editor := strings.Fields(config.Editor())
		c := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], f.Path())...)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return errors.Wrapf(err, "editor %s failed", editor[0])
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := configFile()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), f.Path())
		return nil
	},
}

func init() {
	configListCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	configResetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	for _, c := range []*cobra.Command{configGetCmd, configSetCmd, configListCmd, configResetCmd, configEditCmd, configPathCmd} {
		configCmd.AddCommand(withTracing(c))
	}
	rootCmd.AddCommand(configCmd)
}

func configFile() (*config.File, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return config.NewFile(path), nil
}

type configList []config.Entry

func (l configList) Plain() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, e := range l {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, formatValue(e.Value), e.Source)
	}
	w.Flush()
	return b.String()
}

func listConfigCmd(cmd *cobra.Command, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	f, err := configFile()
	if err != nil {
		return err
	}
	entries, err := f.List()
	if err != nil {
		return err
	}
	return presenter.Render(cmd.OutOrStdout(), format, configList(entries))
}

func resetConfigCmd(cmd *cobra.Command, key string, yes bool) error {
	f, err := configFile()
	if err != nil {
		return err
	}
	if key == "" && !yes {
		answer := presenter.Prompt(fmt.Sprintf("Remove %s and restore every default?", f.Path()), "y", "n")
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			presenter.Info("Aborted")
			return nil
		}
	}
	if err := f.Reset(cmd.Context(), key); err != nil {
		return err
	}
	if key == "" {
		presenter.Success("Config reset to defaults")
	} else {
		presenter.Success(fmt.Sprintf("Reset %s", key))
	}
	return nil
}

// formatValue prints scalars bare and collections as flow YAML.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(string(out), "\n")
}
