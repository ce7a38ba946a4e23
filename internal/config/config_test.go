package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BaseDir != ".specsync" {
		t.Errorf("BaseDir = %q, want .specsync", cfg.BaseDir)
	}
	if cfg.Branches.Integration != "dev" {
		t.Errorf("Integration = %q, want dev", cfg.Branches.Integration)
	}
	if cfg.Branches.Staging != "test" || cfg.Branches.Production != "main" {
		t.Errorf("topology = %q/%q, want test/main", cfg.Branches.Staging, cfg.Branches.Production)
	}
	if cfg.Labels.Marker != "spec" {
		t.Errorf("Marker = %q, want spec", cfg.Labels.Marker)
	}
}

func TestLoad_ProjectOverridesDefaults(t *testing.T) {
	repoRoot := t.TempDir()
	dir := filepath.Join(repoRoot, ProjectDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "branches:\n  integration: develop\nworkspace:\n  shared_paths:\n    - node_modules\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Branches.Integration != "develop" {
		t.Errorf("Integration = %q, want develop", cfg.Branches.Integration)
	}
	// Untouched fields keep defaults.
	if cfg.Branches.Production != "main" {
		t.Errorf("Production = %q, want main", cfg.Branches.Production)
	}
	if len(cfg.Workspace.SharedPaths) != 1 || cfg.Workspace.SharedPaths[0] != "node_modules" {
		t.Errorf("SharedPaths = %v, want [node_modules]", cfg.Workspace.SharedPaths)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	repoRoot := t.TempDir()
	t.Setenv("SPECSYNC_INTEGRATION_BRANCH", "trunk")

	cfg, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Branches.Integration != "trunk" {
		t.Errorf("Integration = %q, want trunk", cfg.Branches.Integration)
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	if _, err := Load(t.TempDir()); err != nil {
		t.Fatalf("Load() on empty repo error = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	repoRoot := t.TempDir()
	cfg := Default()
	cfg.Branches.Integration = "develop"

	if err := Save(cfg, repoRoot); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Branches.Integration != "develop" {
		t.Errorf("round trip Integration = %q, want develop", loaded.Branches.Integration)
	}
}

func TestFeatureBranch(t *testing.T) {
	cfg := Default()
	if got := cfg.FeatureBranch("alice", "fix_login"); got != "dev-alice-fix_login" {
		t.Errorf("FeatureBranch = %q, want dev-alice-fix_login", got)
	}
}
