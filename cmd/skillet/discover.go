package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/intent"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

type DiscoverConfig struct {
	Query string
	Task  string
	JSON  bool
}

func NewDiscoverConfig() *DiscoverConfig {
	return &DiscoverConfig{}
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find the right skill for a job",
	Long: `Find skills by keyword (--query, ranked locally) or by describing a task in
plain language (--task, classified by the intent router with one LLM call).
Without either flag every skill is listed.

Examples:
  skillet discover --query "summarize article"
  skillet discover --task "turn this blog post into a tweet thread"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiscover(cmd, getDiscoverConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewDiscoverConfig()
	discoverCmd.Flags().StringP("query", "q", defaults.Query, "Keywords to match against skill names and descriptions")
	discoverCmd.Flags().StringP("task", "t", defaults.Task, "Describe the task in plain language")
	discoverCmd.Flags().Bool("json", defaults.JSON, "Print results as JSON")
	discoverCmd.MarkFlagsMutuallyExclusive("query", "task")
	rootCmd.AddCommand(withTracing(discoverCmd))
}

func getDiscoverConfigFromFlags(cmd *cobra.Command) *DiscoverConfig {
	config := NewDiscoverConfig()
	if v, err := cmd.Flags().GetString("query"); err == nil {
		config.Query = v
	}
	if v, err := cmd.Flags().GetString("task"); err == nil {
		config.Task = v
	}
	if v, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = v
	}
	return config
}

type matchList []intent.Match

func (l matchList) Plain() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SKILL\tSCORE\tDESCRIPTION")
	for _, m := range l {
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.Skill.Name, m.Score, m.Skill.Description)
	}
	w.Flush()
	return b.String()
}

func runDiscover(cmd *cobra.Command, config *DiscoverConfig) error {
	format := presenter.FormatPlain
	if config.JSON {
		format = presenter.FormatJSON
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	catalog := a.catalog.Discover(ctx)

	switch {
	case config.Task != "":
		in, err := a.router.Route(ctx, config.Task)
		if err != nil {
			return err
		}
		return presenter.Render(cmd.OutOrStdout(), format, in)

	case config.Query != "":
		return renderMatches(cmd, format, config.Query, intent.Rank(config.Query, catalog))

	default:
		if len(catalog) == 0 && format == presenter.FormatPlain {
			presenter.Info("No skills found in " + a.catalog.Root())
			return nil
		}
		return presenter.Render(cmd.OutOrStdout(), format, skillList(catalog))
	}
}

func renderMatches(cmd *cobra.Command, format presenter.Format, query string, matches []intent.Match) error {
	if len(matches) == 0 {
		if format == presenter.FormatPlain {
			presenter.Info(fmt.Sprintf("No skills match %q", query))
			presenter.Hint("Try broader keywords, or 'skillet discover --task \"...\"' to describe the job")
			return nil
		}
		matches = []intent.Match{}
	}
	return presenter.Render(cmd.OutOrStdout(), format, matchList(matches))
}
