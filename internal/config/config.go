// internal/config/config.go
//
// This package handles configuration and the .ai directory structure.
// Every governed project keeps its templates, guides, logs and the
// enforcement.yaml project config under .ai/, and its artifacts under
// memory-bank/.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/lattice-warden/internal/compliance"
	"github.com/kingrea/lattice-warden/internal/guidance"
	"github.com/kingrea/lattice-warden/internal/registry"
)

const (
	// AIDir is the per-project directory holding templates, guides and logs.
	AIDir = ".ai"
	// ConfigFileName is the project config inside AIDir.
	ConfigFileName = "enforcement.yaml"

	defaultStoreRoot    = "memory-bank"
	defaultTemplateRoot = ".ai/template/outputs"
	defaultGuideRoot    = ".ai/template/guides"
	defaultAuditLog     = "memory-bank/.enforcement.log"
	logFileName         = "warden.log"
)

const defaultProjectConfigYAML = `# warden project configuration
version: 1

# strict blocks commands whose templates are missing and records violations;
# flexible only offers guidance. TEMPLATE_MODE and --mode override this.
mode: strict

store_root: memory-bank
template_root: .ai/template/outputs
guide_root: .ai/template/guides
audit_log: memory-bank/.enforcement.log

linkage:
  # loose accepts "memory-bank/" or a parent command name anywhere in the
  # content; strict requires the path of an existing parent artifact.
  reference: loose

# Extra or replacement commands, keyed by id:
# commands:
#   /retro:
#     templates: [retro/retro.md]
#     outputs: [retro/retro-*.md]
#     links_to: [/reflect]

# Flexible-mode guidance overrides, keyed by id or "default":
# guidance:
#   /plan:
#     purpose: Plan the work
#     minimal_constraints:
#       must_have: [milestones]
`

// Mode selects which engine answers a request.
type Mode string

const (
	ModeStrict   Mode = "strict"
	ModeFlexible Mode = "flexible"
)

// ParseMode validates a mode value; empty is rejected so callers can tell
// "unset" apart.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeStrict:
		return ModeStrict, nil
	case ModeFlexible:
		return ModeFlexible, nil
	}
	return "", fmt.Errorf("config: mode must be 'strict' or 'flexible', got %q", value)
}

// Env is the environment surface.
type Env struct {
	Mode       string `env:"TEMPLATE_MODE"`
	ProjectDir string `env:"WARDEN_PROJECT_DIR"`
	LogLevel   string `env:"WARDEN_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"WARDEN_LOG_FORMAT" envDefault:"text"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	return e, nil
}

// LinkageConfig tunes the linkage check.
type LinkageConfig struct {
	Reference string `yaml:"reference,omitempty"`
}

// ProjectConfig models .ai/enforcement.yaml. Paths are kept as written and
// resolved against the project dir by the Config accessors.
type ProjectConfig struct {
	Version      int                            `yaml:"version"`
	Mode         string                         `yaml:"mode,omitempty"`
	StoreRoot    string                         `yaml:"store_root,omitempty"`
	TemplateRoot string                         `yaml:"template_root,omitempty"`
	GuideRoot    string                         `yaml:"guide_root,omitempty"`
	AuditLog     string                         `yaml:"audit_log,omitempty"`
	Linkage      LinkageConfig                  `yaml:"linkage,omitempty"`
	Commands     map[string]registry.Definition `yaml:"commands,omitempty"`
	Guidance     map[string]guidance.Spec       `yaml:"guidance,omitempty"`
}

// Overrides carries command-line flags, which win over everything else.
type Overrides struct {
	Mode      string
	LogLevel  string
	LogFormat string
}

// Config holds the resolved runtime configuration.
type Config struct {
	// ProjectDir is the governed project's root.
	ProjectDir string
	// AIProjectDir is ProjectDir/.ai
	AIProjectDir string

	Project   ProjectConfig
	Mode      Mode
	LogLevel  string
	LogFormat string
}

// ResolveProjectDir picks the project directory: flag, then env, then cwd.
func ResolveProjectDir(flag, envDir string) (string, error) {
	for _, candidate := range []string{flag, envDir} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			abs, err := filepath.Abs(trimmed)
			if err != nil {
				return "", fmt.Errorf("config: resolve project dir: %w", err)
			}
			return abs, nil
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: working directory: %w", err)
	}
	return cwd, nil
}

// InitWorkspace writes the default project config when none exists and
// creates the directories it names.
//
// Structure created:
// .ai/
// ├── enforcement.yaml
// ├── logs/
// └── template/
//
//	├── outputs/  <- strict-mode templates
//	└── guides/   <- flexible-mode guides
//
// memory-bank/     <- governed artifacts and the audit log
func InitWorkspace(projectDir string) (*Config, error) {
	if err := os.MkdirAll(filepath.Join(projectDir, AIDir), 0o755); err != nil {
		return nil, fmt.Errorf("config: create %s: %w", AIDir, err)
	}
	if err := ensureProjectConfig(filepath.Join(projectDir, AIDir, ConfigFileName)); err != nil {
		return nil, err
	}
	cfg, err := NewConfig(projectDir, Env{}, Overrides{})
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.LogsDir(), cfg.TemplateRoot(), cfg.GuideRoot(), cfg.StoreRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return cfg, nil
}

// NewConfig loads the project config and layers env and flags on top.
func NewConfig(projectDir string, e Env, flags Overrides) (*Config, error) {
	cfg := &Config{
		ProjectDir:   filepath.Clean(projectDir),
		AIProjectDir: filepath.Join(projectDir, AIDir),
		Project:      defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	mode, err := resolveMode(flags.Mode, e.Mode, cfg.Project.Mode)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	cfg.LogLevel = firstNonEmpty(flags.LogLevel, e.LogLevel, "info")
	cfg.LogFormat = firstNonEmpty(flags.LogFormat, e.LogFormat, "text")
	return cfg, nil
}

func resolveMode(values ...string) (Mode, error) {
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		return ParseMode(value)
	}
	return ModeStrict, nil
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AIProjectDir, ConfigFileName)
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.AIProjectDir, "logs")
}

// LogFilePath returns the diagnostic log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.LogsDir(), logFileName)
}

// StoreRoot returns the absolute artifact store root.
func (c *Config) StoreRoot() string {
	return resolvePath(c.ProjectDir, c.Project.StoreRoot)
}

// TemplateRoot returns the absolute strict-mode template directory.
func (c *Config) TemplateRoot() string {
	return resolvePath(c.ProjectDir, c.Project.TemplateRoot)
}

// GuideRoot returns the absolute flexible-mode guide directory.
func (c *Config) GuideRoot() string {
	return resolvePath(c.ProjectDir, c.Project.GuideRoot)
}

// AuditLogPath returns the absolute enforcement log path.
func (c *Config) AuditLogPath() string {
	return resolvePath(c.ProjectDir, c.Project.AuditLog)
}

// ReferencePolicy returns the configured linkage reference policy.
func (c *Config) ReferencePolicy() compliance.ReferencePolicy {
	policy, _ := compliance.ParseReferencePolicy(c.Project.Linkage.Reference)
	return policy
}

// SetMode updates the project's default mode and persists it.
func (c *Config) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	c.Project.Mode = string(mode)
	c.Mode = mode
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.StoreRoot) == "" {
		pc.StoreRoot = defaultStoreRoot
	}
	if strings.TrimSpace(pc.TemplateRoot) == "" {
		pc.TemplateRoot = defaultTemplateRoot
	}
	if strings.TrimSpace(pc.GuideRoot) == "" {
		pc.GuideRoot = defaultGuideRoot
	}
	if strings.TrimSpace(pc.AuditLog) == "" {
		pc.AuditLog = defaultAuditLog
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Mode = strings.ToLower(strings.TrimSpace(pc.Mode))
	pc.StoreRoot = strings.TrimSpace(pc.StoreRoot)
	pc.TemplateRoot = strings.TrimSpace(pc.TemplateRoot)
	pc.GuideRoot = strings.TrimSpace(pc.GuideRoot)
	pc.AuditLog = strings.TrimSpace(pc.AuditLog)
	pc.Linkage.Reference = strings.ToLower(strings.TrimSpace(pc.Linkage.Reference))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Mode != "" {
		if _, err := ParseMode(pc.Mode); err != nil {
			return fmt.Errorf("mode: %w", err)
		}
	}
	if _, err := compliance.ParseReferencePolicy(pc.Linkage.Reference); err != nil {
		return fmt.Errorf("linkage.reference: %w", err)
	}
	for id := range pc.Commands {
		if !strings.HasPrefix(strings.TrimSpace(id), registry.Marker) {
			return fmt.Errorf("commands[%s]: id must start with %q", id, registry.Marker)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.AIProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure %s dir: %w", AIDir, err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
