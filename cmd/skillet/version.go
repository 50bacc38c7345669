package main

import (
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := presenter.ParseFormat(cmd.Flag("format").Value.String())
		if err != nil {
			return err
		}
		return presenter.Render(cmd.OutOrStdout(), format, version.Get())
	},
}

func init() {
	versionCmd.Flags().StringP("format", "f", string(presenter.FormatPlain), "Output format (json, yaml, markdown, plain)")
	rootCmd.AddCommand(versionCmd)
}
