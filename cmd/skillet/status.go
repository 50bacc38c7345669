package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/paths"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/version"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, credentials and catalog health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runStatus(cmd, format)
	},
}

func init() {
	statusCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	rootCmd.AddCommand(withTracing(statusCmd))
}

type providerStatus struct {
	Name       string `json:"name" yaml:"name"`
	KeyEnvVar  string `json:"key_env_var" yaml:"key_env_var"`
	Configured bool   `json:"configured" yaml:"configured"`
}

type statusReport struct {
	Version      string           `json:"version" yaml:"version"`
	ProjectRoot  string           `json:"project_root" yaml:"project_root"`
	SkillsDir    string           `json:"skills_dir" yaml:"skills_dir"`
	WorkflowDirs []string         `json:"workflow_dirs" yaml:"workflow_dirs"`
	ConfigFile   string           `json:"config_file" yaml:"config_file"`
	Briefing     string           `json:"briefing" yaml:"briefing"`
	HasBriefing  bool             `json:"has_briefing" yaml:"has_briefing"`
	Provider     string           `json:"provider" yaml:"provider"`
	Model        string           `json:"model" yaml:"model"`
	Skills       int              `json:"skills" yaml:"skills"`
	CodeSkills   int              `json:"code_skills" yaml:"code_skills"`
	Workflows    int              `json:"workflows" yaml:"workflows"`
	Problems     int              `json:"problems" yaml:"problems"`
	Providers    []providerStatus `json:"providers" yaml:"providers"`
	History      *history.Summary `json:"history,omitempty" yaml:"history,omitempty"`
}

func (s *statusReport) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "skillet %s\n\n", s.Version)
	fmt.Fprintf(&b, "Project root:  %s\n", s.ProjectRoot)
	fmt.Fprintf(&b, "Skills:        %s (%d skills, %d code)\n", s.SkillsDir, s.Skills, s.CodeSkills)
	fmt.Fprintf(&b, "Workflows:     %s (%d found)\n", strings.Join(s.WorkflowDirs, ", "), s.Workflows)
	fmt.Fprintf(&b, "Config file:   %s\n", s.ConfigFile)
	fmt.Fprintf(&b, "Briefing:      %s\n", presence(s.HasBriefing, s.Briefing))
	fmt.Fprintf(&b, "Default model: %s/%s\n", s.Provider, s.Model)
	if s.Problems > 0 {
		fmt.Fprintf(&b, "Problems:      %d (run 'skillet validate')\n", s.Problems)
	}

	b.WriteString("\nProviders:\n")
	for _, p := range s.Providers {
		state := "missing"
		if p.Configured {
			state = "configured"
		}
		fmt.Fprintf(&b, "  %-10s %-20s %s\n", p.Name, p.KeyEnvVar, state)
	}

	if s.History != nil {
		fmt.Fprintf(&b, "\nHistory: %d runs (%d succeeded, %d failed)", s.History.Total, s.History.Succeeded, s.History.Failed)
		if s.History.LastRun != nil {
			fmt.Fprintf(&b, ", last %s", s.History.LastRun.Local().Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func runStatus(cmd *cobra.Command, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	root, err := paths.ProjectRoot()
	if err != nil {
		return err
	}
	configPath, err := paths.ConfigFilePath()
	if err != nil {
		return err
	}
	_, hasBriefing := a.briefing.Load(ctx)

	report := &statusReport{
		Version:      version.Get().Version,
		ProjectRoot:  root,
		SkillsDir:    a.catalog.Root(),
		WorkflowDirs: a.finder.Dirs(),
		ConfigFile:   configPath,
		Briefing:     a.briefing.Path(),
		HasBriefing:  hasBriefing,
		Provider:     a.settings.Provider,
		Model:        a.settings.Model,
		Workflows:    len(a.finder.List()),
		Problems:     len(a.catalog.Validate(ctx)),
		Providers:    providerStatuses(),
	}
	for _, d := range a.catalog.Discover(ctx) {
		report.Skills++
		if d.Kind.IsCode() {
			report.CodeSkills++
		}
	}
	if a.history != nil {
		summary, err := a.history.Summarize(ctx)
		if err != nil {
			return err
		}
		report.History = summary
	}
	return presenter.Render(cmd.OutOrStdout(), format, report)
}

func providerStatuses() []providerStatus {
	factories := llm.DefaultFactories(nil)
	out := make([]providerStatus, 0, len(factories))
	for name, f := range factories {
		out = append(out, providerStatus{
			Name:       name,
			KeyEnvVar:  f.KeyEnvVar,
			Configured: f.APIKey != nil && f.APIKey() != "",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
