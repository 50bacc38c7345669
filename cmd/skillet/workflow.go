package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"wf"},
	Short:   "Manage workflows",
	Long:    `List and validate workflow files from the project and user workflow directories.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		return listWorkflowsCmd(cmd, format)
	},
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <workflow>",
	Short: "Validate a workflow without running it",
	Long: `Validate a workflow by name or path. Every failed check is reported: YAML
syntax, schema, unknown skills, duplicate names or outputs, undefined or
circular variable references and the step limit.

Variables supplied at run time can be declared with --input so references
to them are not reported as undefined.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, _ := cmd.Flags().GetStringArray("input")
		return validateWorkflowCmd(cmd, args[0], inputs)
	},
}

func init() {
	workflowListCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	workflowValidateCmd.Flags().StringArray("input", nil, "Variable supplied at run time, as key or key=value (repeatable)")

	workflowCmd.AddCommand(withTracing(workflowListCmd))
	workflowCmd.AddCommand(withTracing(workflowValidateCmd))
	rootCmd.AddCommand(workflowCmd)
}

type workflowList []workflow.Entry

func (l workflowList) Plain() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tPATH")
	for _, e := range l {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Description, e.Path)
	}
	w.Flush()
	return b.String()
}

func listWorkflowsCmd(cmd *cobra.Command, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	list := workflowList(a.finder.List())
	if len(list) == 0 && format == presenter.FormatPlain {
		presenter.Info("No workflows found in " + strings.Join(a.finder.Dirs(), ", "))
		return nil
	}
	return presenter.Render(cmd.OutOrStdout(), format, list)
}

func validateWorkflowCmd(cmd *cobra.Command, name string, inputs []string) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	path, err := a.finder.Find(name)
	if err != nil {
		return err
	}

	provided := make([]string, 0, len(inputs))
	for _, in := range inputs {
		key, _, _ := strings.Cut(in, "=")
		provided = append(provided, key)
	}
	if def, err := workflow.Load(path); err == nil {
		provided = append(provided, fileVariables(def)...)
	}

	ok, problems := a.validator.Validate(ctx, path, provided...)
	if !ok {
		return &workflow.ValidationError{Workflow: name, Problems: problems}
	}
	presenter.Success(fmt.Sprintf("Workflow '%s' is valid", name))
	return nil
}
