package commands

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/spf13/cobra"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
	"github.com/hirefrank/edgestack/internal/instance"
	"github.com/hirefrank/edgestack/internal/printer"
)

var (
	downProjectName string
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the project's issue store",
	Long: `Stop and remove all Docker resources associated with a project's store.

This includes:
  • The store container (issue data is lost unless synced to GitHub)
  • The project's Docker network

The project name is read from es.yml, or inferred from the workspace when
no configuration is present. The command does not prompt for confirmation.

Examples:
  # Stop the store for the current project
  es down

  # Stop a specific project's store
  es down --project other-project`,
	RunE: runDown,
}

func init() {
	downCmd.Flags().StringVarP(&downProjectName, "project", "p", "", "Target project name (from es.yml if omitted)")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	// Phase 1: Project discovery
	targetProject := downProjectName
	if targetProject == "" {
		if cfg, err := loadConfig(); err == nil {
			targetProject = cfg.Project
		} else {
			workspacePath, wsErr := instance.GetCanonicalWorkspacePath(ctx, cli, ".")
			if wsErr != nil {
				return err
			}
			targetProject, wsErr = instance.FindProjectByWorkspace(ctx, cli, workspacePath)
			if wsErr != nil {
				return printer.Error(
					"no project found",
					"No es.yml in this directory and no running store for this workspace.",
					"List running stores:\n  es instances",
					"Stop a specific project:\n  es down --project <name>",
				)
			}
		}
	}

	// Find all containers for this project
	containerFilters := filters.NewArgs()
	containerFilters.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, targetProject))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: containerFilters,
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return printer.Error(
			fmt.Sprintf("project '%s' not found", targetProject),
			fmt.Sprintf("No containers found for project '%s'.", targetProject),
			"Run 'es instances' to see running stores",
		)
	}

	// Stop containers (10s graceful timeout)
	timeout := 10
	for _, c := range containers {
		containerName := c.Names[0]
		printer.Step("Stopping %s...\n", containerName)
		if err := cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			// Container might already be stopped
			printer.Warning("failed to stop %s: %v\n", containerName, err)
		}
	}

	// Remove containers
	for _, c := range containers {
		containerName := c.Names[0]
		printer.Step("Removing %s...\n", containerName)
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", containerName, err)
		}
	}

	// Remove the project network
	networks, err := cli.NetworkList(ctx, types.NetworkListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, targetProject)),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}

	for _, net := range networks {
		printer.Step("Removing network %s...\n", net.Name)
		if err := cli.NetworkRemove(ctx, net.ID); err != nil {
			printer.Warning("failed to remove network %s: %v\n", net.Name, err)
		}
	}

	printer.Success("Project '%s' stopped\n", targetProject)

	return nil
}
