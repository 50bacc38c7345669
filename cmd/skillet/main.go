package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/credentials"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/paths"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

// Exit codes relied on by scripts.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Run reusable AI skills and compose them into workflows",
	Long: `skillet runs prompt and code skills from a skills directory, layering your
master briefing and per-skill profiles into every prompt, and chains skills
into declarative YAML workflows.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("provider", "", "LLM provider (anthropic, openai, google, xai, groq)")
	flags.String("model", "", "Model alias or ID (overrides config)")
	flags.Int("max-tokens", 0, "Maximum response tokens (overrides config)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (fmt, json)")
	flags.BoolP("quiet", "q", false, "Suppress informational output")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("max_tokens", flags.Lookup("max-tokens"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))
}

func setup(cmd *cobra.Command) error {
	configPath, err := paths.ConfigFilePath()
	if err != nil {
		return err
	}
	if err := config.Init(viper.GetViper(), configPath); err != nil {
		// config subcommands must still run so a broken file can be repaired.
		if !isConfigCommand(cmd) {
			return err
		}
		logger.G(cmd.Context()).WithError(err).Warn("ignoring unreadable config file")
	}
	if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		presenter.SetQuiet(true)
	}
	if err := initTracing(cmd.Context()); err != nil {
		return errors.Wrap(err, "failed to initialise tracing")
	}

	userEnv, err := paths.UserEnvPath()
	if err != nil {
		return err
	}
	root, err := paths.ProjectRoot()
	if err != nil {
		return err
	}
	return credentials.LoadGlobal(cmd.Context(), userEnv, filepath.Join(root, ".env"))
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to flush traces")
	}
	closeApp()
	os.Exit(exitCode(ctx, err))
}

// exitCode reports err to the operator and maps it onto the exit-code
// contract.
func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		presenter.Warning("Interrupted")
		return exitInterrupted
	}
	presenter.Error(err, "")
	var hinted interface{ Hint() string }
	if errors.As(err, &hinted) {
		if hint := hinted.Hint(); hint != "" {
			presenter.Hint(hint)
		}
	}
	return exitError
}
