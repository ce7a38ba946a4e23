// Package config provides configuration management for specsync.
// Configuration is loaded from (highest to lowest priority):
// 1. Environment variables (SPECSYNC_*)
// 2. Project config (.specsync/config.yaml in the repo root)
// 3. Home config (~/.specsync/config.yaml)
// 4. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all specsync configuration.
type Config struct {
	// BaseDir is the record directory relative to the repo root.
	BaseDir string `yaml:"base_dir"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose"`

	// Branches names the fixed branch topology.
	Branches BranchConfig `yaml:"branches"`

	// Labels configures the remote tracker label namespace.
	Labels LabelConfig `yaml:"labels"`

	// Workspace configures per-spec worktree creation.
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// BranchConfig names the branches of the promotion topology. Feature branches
// are derived per spec and are not listed here.
type BranchConfig struct {
	// Integration is the branch feature work merges into (default "dev").
	Integration string `yaml:"integration"`
	// Staging is fast-forwarded from integration (default "test").
	Staging string `yaml:"staging"`
	// Production is fast-forwarded from staging (default "main").
	Production string `yaml:"production"`
	// FeaturePrefix prefixes generated feature branch names (default "dev").
	// Full form: <prefix>-<user>-<slug>.
	FeaturePrefix string `yaml:"feature_prefix"`
	// HotfixPrefix marks branches allowed to merge straight into staging.
	HotfixPrefix string `yaml:"hotfix_prefix"`
}

// LabelConfig configures how specs are marked on the remote tracker.
type LabelConfig struct {
	// Marker is the label identifying an issue as a spec mirror.
	Marker string `yaml:"marker"`
	// StatusPrefix prefixes the four mutually-exclusive status labels.
	StatusPrefix string `yaml:"status_prefix"`
	// TitlePrefix is the fixed token prepended to spec issue titles.
	TitlePrefix string `yaml:"title_prefix"`
	// ReadyTitlePrefix is the fixed token marking merge-ready pull requests.
	ReadyTitlePrefix string `yaml:"ready_title_prefix"`
}

// WorkspaceConfig configures worktree creation.
type WorkspaceConfig struct {
	// SharedPaths is an allow-list of repo-relative paths symlinked from the
	// main checkout into each new worktree (e.g. large shared caches).
	SharedPaths []string `yaml:"shared_paths"`
}

// ProjectDirName is the per-repo directory holding records and config.
const ProjectDirName = ".specsync"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseDir: ProjectDirName,
		Branches: BranchConfig{
			Integration:   "dev",
			Staging:       "test",
			Production:    "main",
			FeaturePrefix: "dev",
			HotfixPrefix:  "hotfix/",
		},
		Labels: LabelConfig{
			Marker:           "spec",
			StatusPrefix:     "spec-status:",
			TitlePrefix:      "[Spec]:",
			ReadyTitlePrefix: "[Complete]:",
		},
		Workspace: WorkspaceConfig{},
	}
}

// Load returns the effective configuration for a repo rooted at repoRoot.
// Missing files are not errors; malformed files are.
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(cfg, filepath.Join(home, ProjectDirName, "config.yaml")); err != nil {
			return nil, err
		}
	}
	if repoRoot != "" {
		if err := mergeFile(cfg, filepath.Join(repoRoot, ProjectDirName, "config.yaml")); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes cfg to the project config file under repoRoot.
func Save(cfg *Config, repoRoot string) error {
	dir := filepath.Join(repoRoot, ProjectDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644)
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SPECSYNC_BASE_DIR")); v != "" {
		cfg.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("SPECSYNC_INTEGRATION_BRANCH")); v != "" {
		cfg.Branches.Integration = v
	}
	if v := strings.TrimSpace(os.Getenv("SPECSYNC_VERBOSE")); v == "1" || strings.EqualFold(v, "true") {
		cfg.Verbose = true
	}
}

// SpecsDir returns the directory holding spec records under repoRoot.
func (c *Config) SpecsDir(repoRoot string) string {
	return filepath.Join(repoRoot, c.BaseDir, "specs")
}

// FeatureBranch derives the deterministic branch name for a spec owned by
// the given user.
func (c *Config) FeatureBranch(user, slug string) string {
	return c.Branches.FeaturePrefix + "-" + user + "-" + slug
}
