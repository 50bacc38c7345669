package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/executor"
	"github.com/jingkaihe/skillet/pkg/intent"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Describe what you want in plain language",
	Long: `Route a free-text request to a skillet action with one LLM call and run it.
Low-confidence readings are shown with suggestions instead of being run.

Examples:
  skillet ask "list my skills"
  skillet ask "summarize: the quarterly numbers were better than expected"
  skillet ask "run the url-to-note workflow on https://example.com"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		explain, _ := cmd.Flags().GetBool("explain")
		return runAsk(cmd, strings.Join(args, " "), explain)
	},
}

func init() {
	askCmd.Flags().Bool("explain", false, "Print the routed intent without acting on it")
	rootCmd.AddCommand(withTracing(askCmd))
}

var errNoTarget = errors.New("the request did not name a skill or workflow")

func runAsk(cmd *cobra.Command, utterance string, explain bool) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	in, err := a.router.Route(ctx, utterance)
	if err != nil {
		return err
	}
	if explain || !in.IsConfident() {
		if !in.IsConfident() {
			presenter.Warning(fmt.Sprintf("Not sure what you meant (confidence %.2f)", in.Confidence))
		}
		return presenter.Render(cmd.OutOrStdout(), presenter.FormatPlain, in)
	}
	return dispatchIntent(cmd, a, in, utterance)
}

func dispatchIntent(cmd *cobra.Command, a *app, in *intent.Intent, utterance string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch in.Action {
	case intent.ActionList:
		return runList(cmd, NewListConfig())

	case intent.ActionShow:
		if in.Target == "" {
			return errNoTarget
		}
		return runShow(cmd, in.Target, string(presenter.FormatPlain))

	case intent.ActionConfig:
		return listConfigCmd(cmd, string(presenter.FormatPlain))

	case intent.ActionSearch, intent.ActionDiscover:
		query := in.Input()
		if query == "" {
			query = utterance
		}
		return renderMatches(cmd, presenter.FormatPlain, query, intent.Rank(query, a.catalog.Discover(ctx)))

	case intent.ActionExecuteSkill:
		if in.Target == "" {
			return errNoTarget
		}
		input := in.Input()
		if input == "" {
			return ErrEmptyInput
		}
		result, err := a.executor.Execute(ctx, in.Target, input, executor.Options{})
		if err != nil {
			return err
		}
		return presenter.Render(out, presenter.FormatPlain, result)

	case intent.ActionRunWorkflow:
		if in.Target == "" {
			return errNoTarget
		}
		def, err := a.loadWorkflow(in.Target)
		if err != nil {
			return err
		}
		args := make(map[string]any, len(in.Parameters))
		for k, v := range in.Parameters {
			args[k] = v
		}
		if text := in.Input(); text != "" {
			args[workflow.VarInput] = text
		}
		run, err := a.engine.Run(ctx, def, args)
		if err != nil {
			return err
		}
		return presenter.Render(out, presenter.FormatPlain, run)
	}
	return errors.Errorf("unsupported action '%s'", in.Action)
}
