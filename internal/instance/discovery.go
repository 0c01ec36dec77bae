package instance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
)

// FindProjectByWorkspace finds the project whose store runs on the given
// workspace path. Returns the project name or an error if 0 or 2+ projects
// are found. The workspace path must already be canonical.
func FindProjectByWorkspace(ctx context.Context, cli *client.Client, workspacePath string) (string, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=true", dockerpkg.LabelManaged))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	var matching []string
	for _, container := range containers {
		if container.Labels[dockerpkg.LabelWorkspacePath] != workspacePath {
			continue
		}
		projectName := container.Labels[dockerpkg.LabelProjectName]
		seen := false
		for _, existing := range matching {
			if existing == projectName {
				seen = true
				break
			}
		}
		if !seen {
			matching = append(matching, projectName)
		}
	}

	if len(matching) == 0 {
		return "", fmt.Errorf("no projects found")
	}
	if len(matching) > 1 {
		return "", fmt.Errorf("multiple projects found: %v", matching)
	}

	return matching[0], nil
}

// GetStorePort retrieves the store's published Redis port for the given
// project from Docker labels. Returns an error if the store container is not
// found or the port label is missing.
func GetStorePort(ctx context.Context, cli *client.Client, projectName string) (int, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, projectName))
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentStore))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return 0, fmt.Errorf("store container not found for project '%s'", projectName)
	}

	storeContainer := containers[0]
	portStr, ok := storeContainer.Labels[dockerpkg.LabelStorePort]
	if !ok {
		return 0, fmt.Errorf("store port label missing for project '%s'", projectName)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid store port '%s': %w", portStr, err)
	}

	return port, nil
}

// VerifyStoreRunning checks if the given project's store container is running.
func VerifyStoreRunning(ctx context.Context, cli *client.Client, projectName string) error {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, projectName))
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentStore))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return fmt.Errorf("store for project '%s' not found (run 'es up' first)", projectName)
	}

	for _, container := range containers {
		if container.State != "running" {
			return fmt.Errorf("store for project '%s' is not running (state: %s)", projectName, container.State)
		}
	}

	return nil
}

// ListProjects returns info for every es-managed store on this host.
func ListProjects(ctx context.Context, cli *client.Client) ([]ProjectInfo, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=true", dockerpkg.LabelManaged))
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentStore))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var projects []ProjectInfo
	for _, container := range containers {
		port := 0
		if portStr, ok := container.Labels[dockerpkg.LabelStorePort]; ok {
			port, _ = strconv.Atoi(portStr)
		}
		projects = append(projects, ProjectInfo{
			Name:      container.Labels[dockerpkg.LabelProjectName],
			Status:    DetermineStatus([]types.Container{container}),
			Workspace: container.Labels[dockerpkg.LabelWorkspacePath],
			Port:      port,
			Uptime:    container.Status,
		})
	}

	return projects, nil
}
