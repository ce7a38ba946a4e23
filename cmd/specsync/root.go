package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
	"github.com/specsync/specsync/internal/remote"
	"github.com/specsync/specsync/internal/store"
	"github.com/specsync/specsync/internal/workspace"
)

var (
	// Global flags
	dryRun  bool
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "specsync",
	Short: "Spec lifecycle and workspace isolation CLI",
	Long: `specsync keeps spec records, git worktrees, and the issue tracker in step.

Each spec is a markdown record under .specsync/specs/. Work on a spec happens
in its own worktree on its own branch; the record's status drives the tracker
issue, and the merge queue lands finished work into the integration branch.

Core Commands:
  spec         Create, list, and inspect spec records
  task         Manage the tasks of a spec
  assign       Open an isolated workspace for a spec
  complete     Open a pull request and mark the spec merge-ready
  sync         Reconcile records with the issue tracker
  merge        Run the merge queue and promote branches
  cleanup      Tear down workspaces
  status       Show the active spec and lifecycle counts`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// app bundles everything a subcommand needs, bound to the repository
// containing the working directory.
type app struct {
	repoRoot   string
	cfg        *config.Config
	git        *gitx.Git
	store      *store.Store
	tracker    remote.Tracker
	labels     *remote.Labels
	workspaces *workspace.Manager
	user       string
}

// newApp resolves the enclosing repository and wires the toolchain up.
func newApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	g := gitx.New(cwd)
	repoRoot, err := g.RepoRoot()
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}
	// From inside a spec worktree, records and workspaces still live under
	// the main checkout.
	if infos, err := g.Worktrees(); err == nil && len(infos) > 0 {
		repoRoot = infos[0].Path
	}
	g.Dir = repoRoot

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	return &app{
		repoRoot:   repoRoot,
		cfg:        cfg,
		git:        g,
		store:      store.New(cfg.SpecsDir(repoRoot)),
		tracker:    remote.NewGH(repoRoot),
		labels:     remote.NewLabels(cfg.Labels),
		workspaces: workspace.NewManager(g, cfg, repoRoot, currentUser()),
		user:       currentUser(),
	}, nil
}

// currentUser returns the local username used in derived branch names.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Strip a DOMAIN\ prefix if present.
		name := u.Username
		if i := strings.LastIndex(name, `\`); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
