// Package main provides the entry point for the tapbump CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sgaunet/bullets"
	"github.com/spf13/cobra"

	"github.com/sgaunet/tapbump/internal/logger"
	"github.com/sgaunet/tapbump/internal/ui"
	"github.com/sgaunet/tapbump/internal/urlutil"
	"github.com/sgaunet/tapbump/pkg/api"
	"github.com/sgaunet/tapbump/pkg/bump"
	"github.com/sgaunet/tapbump/pkg/config"
	"github.com/sgaunet/tapbump/pkg/git"
)

const openPRCacheTTL = 15 * time.Minute

var (
	errNoTap        = errors.New("no tap specified and origin remote does not point at one")
	errNoFormula    = errors.New("--formula is required")
	errNoNewVersion = errors.New("at least one of --version and --url is required")
)

var (
	logLevel    string
	formulaPath string
	newVersion  string
	newURL      string
	newSHA      string
	tapRef      string
	branchName  string
	baseBranch  string
	dryRun      bool
	writeOnly   bool
	noFork      bool
	strictMode  bool

	log *bullets.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tapbump",
	Short: "Open version-bump pull requests for package-manager taps",
	Long: `tapbump updates a formula file to a newer upstream version and opens a
pull request with that change. It forks the tap when needed, waits for the
fork to become ready, commits the edit on a new branch, pushes, and opens
the PR. Local edits are rolled back if any step fails.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return runBump(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"Set log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&formulaPath, "formula", "", "Path to the formula file to bump")
	rootCmd.Flags().StringVar(&newVersion, "version", "", "New upstream version")
	rootCmd.Flags().StringVar(&newURL, "url", "", "New upstream download URL")
	rootCmd.Flags().StringVar(&newSHA, "sha256", "", "Checksum of the new download")
	rootCmd.Flags().StringVar(&tapRef, "tap", "", "Upstream tap as owner/repo (default: origin remote)")
	rootCmd.Flags().StringVar(&branchName, "branch", "", "Bump branch name (default: bump-<formula>-<version>)")
	rootCmd.Flags().StringVar(&baseBranch, "base", "", "Base branch for the PR (default: the tap's default branch)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the intended operations without executing them")
	rootCmd.Flags().BoolVar(&writeOnly, "write-only", false, "Create the branch and commits but do not push or open a PR")
	rootCmd.Flags().BoolVar(&noFork, "no-fork", false, "Push to origin instead of a fork")
	rootCmd.Flags().BoolVar(&strictMode, "strict", false, "Abort when a PR for this formula already exists")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBump(ctx context.Context) error {
	log = logger.NewLogger(logLevel)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if formulaPath == "" {
		return errNoFormula
	}
	if newVersion == "" && newURL == "" {
		return errNoNewVersion
	}

	repo, err := git.OpenRepository(".")
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}
	repo.SetLogger(log)
	if cfg.CommitName != "" {
		repo.SetIdentity(cfg.CommitName, cfg.CommitEmail)
	}

	tapOwner, tapRepo, err := resolveTap(cfg, repo)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Tap: %s/%s", tapOwner, tapRepo))

	client := api.NewClient()
	client.SetLogger(log)
	client.SetBaseURLs(cfg.APIBase, cfg.GraphQLURL, cfg.UploadsURL)
	if creds := client.Credentials(); !creds.IsAnonymous() {
		log.Debug(fmt.Sprintf("Using credential from %s: %s", creds.Source, creds.Token))
		repo.SetAuthToken(creds.Token.Value())
	}

	formulaName := formulaBaseName(formulaPath)
	edit, err := bump.NewVersionEdit(formulaPath, formulaName, newVersion, newURL, newSHA)
	if err != nil {
		return err
	}

	bctx, err := buildContext(ctx, client, tapOwner, tapRepo, formulaName, edit)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := guardDuplicates(ctx, cfg, client, bctx, formulaName); err != nil {
			return err
		}
	}

	bumper := bump.New(client, repo, bump.Options{
		DryRun:    dryRun,
		WriteOnly: writeOnly,
		NoFork:    noFork,
	})
	bumper.SetLogger(log)

	pr, err := bumper.Run(ctx, bctx)
	if err != nil {
		return err
	}
	if pr != nil {
		fmt.Println(pr.GetHTMLURL())
	}
	return nil
}

// resolveTap picks the upstream tap from the flag, the config file, or the
// origin remote, in that order.
func resolveTap(cfg *config.Config, repo *git.Repository) (string, string, error) {
	ref := tapRef
	if ref == "" {
		ref = cfg.Tap
	}
	if ref != "" {
		parts := strings.SplitN(ref, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("%w: %q", errNoTap, ref)
		}
		return parts[0], parts[1], nil
	}

	remoteURL, err := repo.GetRemoteURL("origin")
	if err != nil {
		return "", "", fmt.Errorf("failed to get origin remote: %w", err)
	}
	owner, name := urlutil.SplitOwnerRepo(remoteURL)
	if owner == "" {
		return "", "", fmt.Errorf("%w: %s", errNoTap, remoteURL)
	}
	return owner, name, nil
}

// buildContext assembles the workflow context: branch names, PR base, and
// the formula edit.
func buildContext(
	ctx context.Context,
	client *api.Client,
	tapOwner, tapRepo, formulaName string,
	edit *bump.FileEdit,
) (*bump.Context, error) {
	base := baseBranch
	if base == "" && !dryRun {
		upstream, err := client.GetRepository(ctx, tapOwner, tapRepo)
		if err != nil {
			return nil, fmt.Errorf("failed to get tap repository: %w", err)
		}
		base = upstream.GetDefaultBranch()
	}
	if base == "" {
		base = "main"
	}

	branch := branchName
	if branch == "" {
		branch = fmt.Sprintf("bump-%s-%s", formulaName, newVersion)
		branch = strings.TrimSuffix(branch, "-")
	}

	bctx := &bump.Context{
		TapOwner:     tapOwner,
		TapRepo:      tapRepo,
		SourceBranch: branch,
		TargetBranch: base,
	}
	bctx.AddEdit(edit)
	return bctx, nil
}

// guardDuplicates aborts, warns or prompts when an existing PR already
// touches the formula, per configuration.
func guardDuplicates(
	ctx context.Context,
	cfg *config.Config,
	client *api.Client,
	bctx *bump.Context,
	formulaName string,
) error {
	mode := bump.DuplicateMode(cfg.DuplicateMode)
	if strictMode {
		mode = bump.DuplicateStrict
	}

	checker := bump.NewDuplicateChecker(client, api.NewCache(openPRCacheTTL), cfg.BotUser)
	checker.SetLogger(log)
	checker.SetConfirm(ui.Confirm)

	filePath, err := repoRelativePath(formulaPath)
	if err != nil {
		return err
	}

	return checker.Guard(ctx, bctx.TapOwner, bctx.TapRepo, formulaName, filePath, mode)
}

// repoRelativePath converts the formula path to the repo-relative,
// slash-separated form PR file listings use.
func repoRelativePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil {
		return "", fmt.Errorf("file %s is outside the repository: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func formulaBaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
