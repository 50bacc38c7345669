package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/briefing"
	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/models"
	"github.com/jingkaihe/skillet/pkg/paths"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

type InitConfig struct {
	SkipWorkflows bool
	Overwrite     bool
}

func NewInitConfig() *InitConfig {
	return &InitConfig{}
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the skillet config directory",
	Long: `Create the user config directory with a config file, a master briefing
template and the model registry, and install the built-in workflow templates.
Existing files are left untouched unless --overwrite is given; the briefing
and config files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInit(cmd, getInitConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewInitConfig()
	initCmd.Flags().Bool("skip-workflows", defaults.SkipWorkflows, "Do not install workflow templates")
	initCmd.Flags().Bool("overwrite", defaults.Overwrite, "Replace existing workflow templates and model registry")
	rootCmd.AddCommand(withTracing(initCmd))
}

func getInitConfigFromFlags(cmd *cobra.Command) *InitConfig {
	config := NewInitConfig()
	if v, err := cmd.Flags().GetBool("skip-workflows"); err == nil {
		config.SkipWorkflows = v
	}
	if v, err := cmd.Flags().GetBool("overwrite"); err == nil {
		config.Overwrite = v
	}
	return config
}

func runInit(cmd *cobra.Command, cfg *InitConfig) error {
	log := logger.G(cmd.Context())

	dir, err := paths.UserConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	log.WithField("config_dir", dir).Debug("config directory ready")
	presenter.Section("skillet setup")

	configPath, err := paths.ConfigFilePath()
	if err != nil {
		return err
	}
	if fileExists(configPath) {
		presenter.Info("Config file exists: " + configPath)
	} else {
		if err := config.NewFile(configPath).Ensure(); err != nil {
			return err
		}
		presenter.Success("Created " + configPath)
	}

	briefingPath, err := paths.MasterBriefingPath()
	if err != nil {
		return err
	}
	written, err := briefing.WriteTemplate(briefingPath)
	if err != nil {
		return err
	}
	if written {
		presenter.Success("Created master briefing template " + briefingPath)
	} else {
		presenter.Info("Master briefing exists: " + briefingPath)
	}

	registryPath, err := paths.ModelRegistryPath()
	if err != nil {
		return err
	}
	if cfg.Overwrite || !fileExists(registryPath) {
		if err := os.WriteFile(registryPath, models.DefaultRegistryYAML(), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", registryPath)
		}
		presenter.Success("Wrote model registry " + registryPath)
	}

	if !cfg.SkipWorkflows {
		wfDir, err := paths.UserWorkflowsDir()
		if err != nil {
			return err
		}
		installed, err := workflow.InstallTemplates(wfDir, cfg.Overwrite)
		if err != nil {
			return err
		}
		for _, name := range installed {
			presenter.Success("Installed workflow " + name)
		}
		if len(installed) == 0 {
			presenter.Info("Workflow templates already installed in " + wfDir)
		}
	}

	presenter.Separator()
	reportCredentials()
	presenter.Info(fmt.Sprintf("Put provider keys in %s or export them in your shell.", envPathOrDefault()))
	return nil
}

func reportCredentials() {
	for _, p := range providerStatuses() {
		if p.Configured {
			presenter.Success(fmt.Sprintf("Found %s (%s)", p.KeyEnvVar, p.Name))
		}
	}
}

func envPathOrDefault() string {
	if path, err := paths.UserEnvPath(); err == nil {
		return path
	}
	return ".env"
}
