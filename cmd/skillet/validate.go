package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every skill for integrity problems",
	Long: `Check every directory in the skills root, including ones discovery skips:
missing or malformed SKILL.md, missing names or descriptions, and code skills
with a src/ directory but no registered implementation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runValidate(cmd, format)
	},
}

func init() {
	validateCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	rootCmd.AddCommand(withTracing(validateCmd))
}

type problemList []skills.Problem

func (l problemList) Plain() string {
	var b strings.Builder
	for i, p := range l {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return b.String()
}

func runValidate(cmd *cobra.Command, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	problems := problemList(a.catalog.Validate(ctx))
	if len(problems) == 0 {
		if format != presenter.FormatPlain {
			return presenter.Render(cmd.OutOrStdout(), format, problemList{})
		}
		presenter.Success(fmt.Sprintf("All %d skills are valid", len(a.catalog.Discover(ctx))))
		return nil
	}

	if err := presenter.Render(cmd.OutOrStdout(), format, problems); err != nil {
		return err
	}
	return errors.Errorf("%d skill problem(s) found", len(problems))
}
