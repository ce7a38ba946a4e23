package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
)

func TestAllowed(t *testing.T) {
	p := New(config.Default().Branches)

	cases := []struct {
		source, target string
		want           bool
	}{
		{"dev-alice-fix_login", "dev", true},
		{"anything-at-all", "dev", true},
		{"dev", "test", true},
		{"hotfix/urgent", "test", true},
		{"dev-alice-fix_login", "test", false},
		{"main", "test", false},
		{"test", "main", true},
		{"dev", "main", false},
		{"hotfix/urgent", "main", false},
		{"dev", "dev-alice-fix_login", true},
	}
	for _, tc := range cases {
		if got := p.Allowed(tc.source, tc.target); got != tc.want {
			t.Errorf("Allowed(%q, %q) = %v, want %v", tc.source, tc.target, got, tc.want)
		}
	}
}

func TestHookScriptContainsTopology(t *testing.T) {
	p := New(config.Default().Branches)
	script := p.HookScript()

	if !strings.HasPrefix(script, "#!/bin/sh") {
		t.Error("hook missing shebang")
	}
	for _, needle := range []string{"test)", "main)", "hotfix/*", "MERGE_HEAD"} {
		if !strings.Contains(script, needle) {
			t.Errorf("hook missing %q", needle)
		}
	}
}

func TestHookScriptUsesRuleStatements(t *testing.T) {
	branches := config.Default().Branches
	p := New(branches)
	script := p.HookScript()

	for _, target := range []string{branches.Staging, branches.Production} {
		if !strings.Contains(script, p.Explain(target)) {
			t.Errorf("hook missing rule statement for %s: %q", target, p.Explain(target))
		}
	}
}

type fakeRunner struct {
	calls []string
}

func (f *fakeRunner) Run(dir string, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if len(args) > 1 && args[0] == "config" && args[1] == "--get" {
		return "", os.ErrNotExist
	}
	return "", nil
}

func TestInstallWritesExecutableHook(t *testing.T) {
	repoRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repoRoot, ".git", "hooks"), 0o755); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{}
	g := &gitx.Git{Dir: repoRoot, Runner: runner}

	p := New(config.Default().Branches)
	if err := p.Install(g, repoRoot); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	path := filepath.Join(repoRoot, ".git", "hooks", HookName)
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("hook not written: %v", err)
	}
	if fi.Mode()&0o111 == 0 {
		t.Error("hook not executable")
	}

	var ffDisabled bool
	for _, call := range runner.calls {
		if call == "config merge.ff false" {
			ffDisabled = true
		}
	}
	if !ffDisabled {
		t.Errorf("merge.ff not disabled; calls = %v", runner.calls)
	}
}
