package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
)

var showCmd = &cobra.Command{
	Use:   "show <skill>",
	Short: "Show details of a skill",
	Long: `Show a skill's metadata, kind, profile state and whether a master briefing
will be layered into its prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if diff, _ := cmd.Flags().GetBool("profile-diff"); diff {
			return showProfileDiff(cmd, args[0])
		}
		return runShow(cmd, args[0], format)
	},
}

func init() {
	showCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	showCmd.Flags().Bool("profile-diff", false, "Show how PROFILE.md differs from PROFILE.md.template")
	rootCmd.AddCommand(withTracing(showCmd))
}

// skillDetail is the show view of a skill.
type skillDetail struct {
	skills.Descriptor `yaml:",inline"`

	Briefing     bool   `json:"briefing" yaml:"briefing"`
	BriefingPath string `json:"briefing_path" yaml:"briefing_path"`
	EnvFile      bool   `json:"env_file" yaml:"env_file"`
}

func (d skillDetail) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:        %s\n", d.Name)
	fmt.Fprintf(&b, "Kind:        %s\n", d.Kind)
	fmt.Fprintf(&b, "Description: %s\n", d.Description)
	fmt.Fprintf(&b, "Path:        %s\n", d.Path)
	fmt.Fprintf(&b, "Profile:     %s\n", d.ProfileState)
	if d.ParentSkill != "" {
		fmt.Fprintf(&b, "Parent:      %s\n", d.ParentSkill)
	}
	fmt.Fprintf(&b, "Briefing:    %s\n", presence(d.Briefing, d.BriefingPath))
	fmt.Fprintf(&b, "Skill .env:  %s\n", presence(d.EnvFile, ""))
	return b.String()
}

func presence(ok bool, path string) string {
	switch {
	case ok && path != "":
		return "present (" + path + ")"
	case ok:
		return "present"
	default:
		return "absent"
	}
}

func runShow(cmd *cobra.Command, name, rawFormat string) error {
	format, err := presenter.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	d, err := a.catalog.Get(ctx, name)
	if err != nil {
		return err
	}
	_, hasBriefing := a.briefing.Load(ctx)
	detail := skillDetail{
		Descriptor:   *d,
		Briefing:     hasBriefing,
		BriefingPath: a.briefing.Path(),
		EnvFile:      fileExists(d.EnvFile()),
	}
	return presenter.Render(cmd.OutOrStdout(), format, detail)
}

func showProfileDiff(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	diff, err := a.catalog.ProfileDiff(ctx, name)
	if err != nil {
		return err
	}
	if diff == "" {
		presenter.Info(fmt.Sprintf("Skill '%s' has no customized profile changes", name))
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), diff)
	return err
}
