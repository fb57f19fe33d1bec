package main

import (
	"fmt"
	"path/filepath"

	"github.com/kingrea/lattice-warden/internal/artifact"
	"github.com/kingrea/lattice-warden/internal/audit"
	"github.com/kingrea/lattice-warden/internal/compliance"
	"github.com/kingrea/lattice-warden/internal/config"
	"github.com/kingrea/lattice-warden/internal/guidance"
	"github.com/kingrea/lattice-warden/internal/logging"
	"github.com/kingrea/lattice-warden/internal/registry"
	"github.com/kingrea/lattice-warden/internal/templates"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	project   string
	mode      string
	logLevel  string
	logFormat string
}

// app wires the components for one invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	registry  *registry.Registry
	guidance  *guidance.Table
	templates *templates.Store
	store     *artifact.Store
	log       *audit.Log
}

func newApp(opts globalOptions) (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	projectDir, err := config.ResolveProjectDir(opts.project, env.ProjectDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(projectDir, env, config.Overrides{
		Mode:      opts.mode,
		LogLevel:  opts.logLevel,
		LogFormat: opts.logFormat,
	})
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Path:   cfg.LogFilePath(),
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(cfg.Project.Commands)
	if err != nil {
		logger.Close()
		return nil, err
	}
	table, err := guidance.LoadTable(cfg.Project.Guidance)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Debug("configuration loaded",
		"project", cfg.ProjectDir,
		"mode", cfg.Mode,
		"commands", reg.Len(),
	)
	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		guidance:  table,
		templates: templates.NewStore(cfg.TemplateRoot(), cfg.GuideRoot()),
		store:     artifact.NewStore(cfg.ProjectDir, cfg.StoreRoot()),
	}, nil
}

func (a *app) auditLog() (*audit.Log, error) {
	if a.log != nil {
		return a.log, nil
	}
	log, err := audit.Open(a.cfg.AuditLogPath(), audit.WithLogger(a.logger.ForComponent("audit")))
	if err != nil {
		return nil, err
	}
	if skipped := log.Skipped(); skipped > 0 {
		a.logger.Warn("audit log has unreadable lines", "skipped", skipped, "path", log.Path())
	}
	a.log = log
	return log, nil
}

func (a *app) validator() (*compliance.Validator, error) {
	log, err := a.auditLog()
	if err != nil {
		return nil, err
	}
	return compliance.New(a.registry, a.templates, a.store, log,
		compliance.WithLogger(a.logger.ForComponent("compliance")),
		compliance.WithReferencePolicy(a.cfg.ReferencePolicy()),
	), nil
}

func (a *app) engine() *guidance.Engine {
	return guidance.New(a.guidance, a.templates, a.store,
		guidance.WithLogger(a.logger.ForComponent("guidance")),
		guidance.WithMode(string(a.cfg.Mode)),
	)
}

// governed reports whether id is a registered workflow command. Strict
// surfaces return before touching the audit log for anything else.
func (a *app) governed(id string) bool {
	return a.registry.Lookup(id).Governed()
}

// readContent reads a --content-file argument; relative paths are taken from
// the working directory.
func (a *app) readContent(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := a.store.Read(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *app) strict() bool {
	return a.cfg.Mode == config.ModeStrict
}

func (a *app) Close() error {
	var firstErr error
	if a.log != nil {
		if err := a.log.Close(); err != nil {
			firstErr = fmt.Errorf("close audit log: %w", err)
		}
	}
	if err := a.logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
