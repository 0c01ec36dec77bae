package instance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
)

// GetCanonicalWorkspacePath resolves a workspace path to its canonical form
// (absolute, symlinks resolved). When running inside a container with the
// workspace mounted at /app, the path is translated to the host-side path so
// labels match across invocations.
func GetCanonicalWorkspacePath(ctx context.Context, cli *client.Client, path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("workspace path does not exist: %s", path)
		}
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	if hostPath := translateContainerPath(ctx, cli, abs); hostPath != "" {
		return hostPath, nil
	}

	return abs, nil
}

// translateContainerPath maps a /app-prefixed path back to the host path
// when es itself runs inside a container with the workspace bind-mounted at
// /app. Returns "" when no translation applies.
func translateContainerPath(ctx context.Context, cli *client.Client, path string) string {
	if !strings.HasPrefix(path, "/app") {
		return ""
	}
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return ""
	}

	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	inspect, err := cli.ContainerInspect(ctx, hostname)
	if err != nil {
		return ""
	}

	for _, mount := range inspect.Mounts {
		if mount.Destination == "/app" {
			rel := strings.TrimPrefix(path, "/app")
			return mount.Source + rel
		}
	}

	return ""
}

// WorkspaceCollision describes another project already running on the same
// workspace path.
type WorkspaceCollision struct {
	ProjectName   string
	WorkspacePath string
}

// CheckWorkspaceCollision checks whether a different project's store is
// already bound to the given workspace path. Returns nil when the path is
// free or only used by the current project.
func CheckWorkspaceCollision(ctx context.Context, cli *client.Client, workspacePath, currentProject string) (*WorkspaceCollision, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=true", dockerpkg.LabelManaged))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	for _, container := range containers {
		if container.Labels[dockerpkg.LabelWorkspacePath] != workspacePath {
			continue
		}
		projectName := container.Labels[dockerpkg.LabelProjectName]
		if projectName == currentProject {
			continue
		}
		return &WorkspaceCollision{
			ProjectName:   projectName,
			WorkspacePath: workspacePath,
		}, nil
	}

	return nil, nil
}
