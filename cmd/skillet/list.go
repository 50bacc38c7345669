package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
)

type ListConfig struct {
	Format string
}

func NewListConfig() *ListConfig {
	return &ListConfig{Format: string(presenter.FormatPlain)}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	Long: `List every skill discovered in the skills directory with its kind and
profile state. An empty skills directory is not an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runList(cmd, getListConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("format", "f", defaults.Format, "Output format (json, yaml, markdown, plain)")
	rootCmd.AddCommand(withTracing(listCmd))
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	return config
}

func runList(cmd *cobra.Command, config *ListConfig) error {
	format, err := presenter.ParseFormat(config.Format)
	if err != nil {
		return err
	}
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	list := skillList(a.catalog.Discover(cmd.Context()))
	if len(list) == 0 && format == presenter.FormatPlain {
		presenter.Info(fmt.Sprintf("No skills found in %s", a.catalog.Root()))
		return nil
	}
	return presenter.Render(cmd.OutOrStdout(), format, list)
}

type skillList []*skills.Descriptor

func (l skillList) Plain() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tPROFILE\tDESCRIPTION")
	for _, d := range l {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.ProfileState, d.Description)
	}
	w.Flush()
	return b.String()
}

func (l skillList) Markdown() string {
	var b strings.Builder
	b.WriteString("| Skill | Kind | Profile | Description |\n|---|---|---|---|\n")
	for _, d := range l {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", d.Name, d.Kind, d.ProfileState, d.Description)
	}
	return b.String()
}
