package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/git"
	"github.com/hirefrank/edgestack/internal/instance"
	"github.com/hirefrank/edgestack/internal/scaffold"
)

var (
	initForce   bool
	initProject string
	initRepo    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new edgestack project",
	Long: `Initialize a new edgestack project in the current directory.

Creates:
  • es.yml - Project configuration file

The project name defaults to the repository directory name and the GitHub
repo is inferred from the origin remote when one exists.

This command must be run from the root of a Git repository.

Use --force to reinitialize an existing project (WARNING: replaces existing configuration).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (replaces existing es.yml)")
	initCmd.Flags().StringVar(&initProject, "project", "", "Project name (defaults to repository directory name)")
	initCmd.Flags().StringVar(&initRepo, "repo", "", "GitHub repository as owner/repo (defaults to origin remote)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Validate Git context first
	checker := git.NewChecker()
	if err := checker.ValidateGitContext(); err != nil {
		return err
	}

	// Check for existing files (unless --force)
	if !initForce {
		if err := scaffold.CheckExisting(); err != nil {
			return err
		}
	}

	project := initProject
	if project == "" {
		root, err := checker.GetGitRoot()
		if err != nil {
			return fmt.Errorf("failed to determine repository root: %w", err)
		}
		project = sanitizeProjectName(filepath.Base(root))
	}
	if err := instance.ValidateName(project); err != nil {
		return fmt.Errorf("cannot derive a valid project name: %w (use --project)", err)
	}

	repo := initRepo
	if repo == "" {
		// Best effort: repos without an origin remote stay unsynced
		if slug, err := checker.OriginSlug(); err == nil {
			repo = slug
		}
	}

	params := scaffold.Params{
		Project: project,
		Repo:    repo,
	}

	if err := scaffold.Initialize(params, initForce); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(params)

	return nil
}

// sanitizeProjectName lowercases a directory name and strips characters
// that are not valid in a DNS-compatible project name.
func sanitizeProjectName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else if r == '_' || r == '.' || r == ' ' {
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
