package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Checker provides Git repository validation functionality
type Checker struct{}

// NewChecker creates a new Git checker
func NewChecker() *Checker {
	return &Checker{}
}

// IsGitRepository checks if the current directory is within a Git repository
func (c *Checker) IsGitRepository() (bool, error) {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	err := cmd.Run()
	if err != nil {
		// Check if error is because git command not found
		if _, ok := err.(*exec.Error); ok {
			return false, fmt.Errorf("git not found in PATH\nes requires Git to be installed.\nInstall Git: https://git-scm.com/downloads")
		}
		// Not in a Git repository
		return false, nil
	}
	return true, nil
}

// GetGitRoot returns the absolute path to the Git repository root
func (c *Checker) GetGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}

	gitRoot := strings.TrimSpace(string(output))
	return gitRoot, nil
}

// IsGitRoot checks if the current directory is the Git repository root
func (c *Checker) IsGitRoot() (bool, string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return false, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	gitRoot, err := c.GetGitRoot()
	if err != nil {
		return false, "", err
	}

	isRoot := filepath.Clean(currentDir) == filepath.Clean(gitRoot)

	return isRoot, gitRoot, nil
}

// ValidateGitContext validates that we're in a Git repository at its root
// Returns a user-friendly error if validation fails
func (c *Checker) ValidateGitContext() error {
	isRepo, err := c.IsGitRepository()
	if err != nil {
		return err
	}

	if !isRepo {
		return fmt.Errorf("not a Git repository\n\nes requires initialization from within a Git repository.\n\nRun 'git init' first, then 'es init'")
	}

	isRoot, gitRoot, err := c.IsGitRoot()
	if err != nil {
		return err
	}

	if !isRoot {
		currentDir, _ := os.Getwd()
		return fmt.Errorf("must run from Git repository root\n\nGit root: %s\nCurrent directory: %s\n\nPlease cd to the Git root and run 'es init'", gitRoot, currentDir)
	}

	return nil
}

// OriginSlug returns the owner/repo slug of the origin remote, used to
// infer the GitHub repository when es.yml does not pin one.
func (c *Checker) OriginSlug() (string, error) {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to read origin remote: %w", err)
	}

	slug, err := SlugFromRemoteURL(strings.TrimSpace(string(output)))
	if err != nil {
		return "", err
	}
	return slug, nil
}

// SlugFromRemoteURL extracts owner/repo from the remote URL forms GitHub
// uses: https://github.com/owner/repo(.git) and git@github.com:owner/repo(.git).
func SlugFromRemoteURL(url string) (string, error) {
	var path string
	switch {
	case strings.HasPrefix(url, "git@"):
		idx := strings.Index(url, ":")
		if idx < 0 {
			return "", fmt.Errorf("unrecognized remote URL: %s", url)
		}
		path = url[idx+1:]
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		parts := strings.SplitN(strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://"), "/", 2)
		if len(parts) < 2 {
			return "", fmt.Errorf("unrecognized remote URL: %s", url)
		}
		path = parts[1]
	default:
		return "", fmt.Errorf("unrecognized remote URL: %s", url)
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	segments := strings.Split(path, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", fmt.Errorf("remote URL does not look like owner/repo: %s", url)
	}
	return segments[0] + "/" + segments[1], nil
}
