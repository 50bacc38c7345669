package main

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/briefing"
	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/executor"
	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/intent"
	"github.com/jingkaihe/skillet/pkg/llm"
	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/models"
	"github.com/jingkaihe/skillet/pkg/paths"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

// app holds the process-wide services. It is built on first use so that
// commands like version and config never touch the skills directory.
type app struct {
	settings   *config.Settings
	briefing   *briefing.Loader
	catalog    *skills.Catalog
	dispatcher *llm.Dispatcher
	registry   *models.Store
	resolver   *models.Resolver
	history    *history.Store
	executor   *executor.Executor
	validator  *workflow.Validator
	engine     *workflow.Engine
	finder     *workflow.Finder
	router     *intent.Router
}

var (
	appOnce    sync.Once
	currentApp *app
	appErr     error
)

func getApp(ctx context.Context) (*app, error) {
	appOnce.Do(func() {
		currentApp, appErr = newApp(ctx)
	})
	return currentApp, appErr
}

func closeApp() {
	if currentApp == nil || currentApp.history == nil {
		return
	}
	if err := currentApp.history.Close(); err != nil {
		logger.G(context.Background()).WithError(err).Warn("failed to close history database")
	}
}

func newApp(ctx context.Context) (*app, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	skillsDir, err := paths.SkillsDir()
	if err != nil {
		return nil, err
	}
	briefingPath, err := paths.MasterBriefingPath()
	if err != nil {
		return nil, err
	}
	registryPath, err := paths.ModelRegistryPath()
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings, briefing: briefing.NewLoader(briefingPath)}
	a.catalog = skills.NewCatalog(skillsDir, skills.WithBriefing(a.briefing))
	a.dispatcher = llm.NewDispatcher(
		llm.WithFactories(llm.DefaultFactories(settings.BaseURLs())),
		llm.WithAttempts(settings.Retry.Attempts),
		llm.WithRequestsPerMinute(settings.RateLimit.RPM),
	)

	a.registry = models.NewStore(registryPath)
	var resolverOpts []models.ResolverOption
	if settings.Models.Probe {
		resolverOpts = append(resolverOpts, models.WithProbing(a.prober))
	}
	a.resolver = models.NewResolver(a.registry, resolverOpts...)

	if settings.History.Enabled {
		dbPath, err := paths.HistoryDBPath()
		if err != nil {
			return nil, err
		}
		store, err := history.Open(ctx, dbPath)
		if err != nil {
			// History is informational; a broken database never blocks a run.
			logger.G(ctx).WithError(err).Warn("run history disabled")
		} else {
			a.history = store
		}
	}

	userEnv, err := paths.UserEnvPath()
	if err != nil {
		return nil, err
	}
	root, err := paths.ProjectRoot()
	if err != nil {
		return nil, err
	}

	execOpts := []executor.Option{
		executor.WithDefaults(executor.Defaults{
			Provider:  settings.Provider,
			Model:     settings.Model,
			MaxTokens: settings.MaxTokens,
		}),
		executor.WithEnvFiles(userEnv, filepath.Join(root, ".env")),
	}
	engineOpts := []workflow.EngineOption{workflow.WithPricePerMillion(settings.DryRun.PricePerMillion)}
	if a.history != nil {
		execOpts = append(execOpts, executor.WithRecorder(a.history))
		engineOpts = append(engineOpts, workflow.WithRecorder(a.history))
	}

	a.executor = executor.New(a.catalog, a.dispatcher, a.resolver, execOpts...)
	a.validator = workflow.NewValidator(a.catalog, workflow.WithMaxSteps(settings.Workflow.MaxSteps))
	a.engine = workflow.NewEngine(a.executor, append(engineOpts, workflow.WithValidator(a.validator))...)

	projectWorkflows, err := paths.WorkflowsDir()
	if err != nil {
		return nil, err
	}
	userWorkflows, err := paths.UserWorkflowsDir()
	if err != nil {
		return nil, err
	}
	a.finder = workflow.NewFinder(projectWorkflows, userWorkflows)

	a.router = intent.NewRouter(a.dispatcher, a.catalog,
		intent.WithModel(settings.Intent.Provider, settings.Intent.Model),
		intent.WithResolver(a.resolver),
	)
	return a, nil
}

func (a *app) prober(ctx context.Context, provider string) (llmtypes.Prober, error) {
	client, err := a.dispatcher.Provider(ctx, provider)
	if err != nil {
		return nil, err
	}
	prober, ok := client.(llmtypes.Prober)
	if !ok {
		return nil, errors.Errorf("provider '%s' cannot probe models", provider)
	}
	return prober, nil
}

// loadWorkflow resolves a workflow by name or path and parses it.
func (a *app) loadWorkflow(name string) (*workflow.Definition, error) {
	path, err := a.finder.Find(name)
	if err != nil {
		return nil, err
	}
	return workflow.Load(path)
}
