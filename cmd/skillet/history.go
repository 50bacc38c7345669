package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

const defaultHistoryLimit = 20

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent skill and workflow runs",
	Long: `Show recent skill calls and workflow runs, newest first. History is kept in a
local SQLite database and can be turned off with 'skillet config set
history.enabled false'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		return runHistory(cmd, limit, format)
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to show")
	historyCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	rootCmd.AddCommand(withTracing(historyCmd))
}

type historyList []history.Run

func (l historyList) Plain() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tNAME\tSTATUS\tDURATION\tMODEL")
	for _, r := range l {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Name, r.Status, r.Duration(), r.Model)
	}
	w.Flush()
	return b.String()
}

func runHistory(cmd *cobra.Command, limit int, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return errors.Errorf("limit must be positive, got %d", limit)
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if a.history == nil {
		presenter.Info("Run history is disabled")
		return nil
	}

	runs, err := a.history.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 && format == presenter.FormatPlain {
		presenter.Info("No runs recorded yet")
		return nil
	}
	return presenter.Render(cmd.OutOrStdout(), format, historyList(runs))
}
