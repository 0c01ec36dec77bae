package commands

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/config"
	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
	"github.com/hirefrank/edgestack/internal/git"
	"github.com/hirefrank/edgestack/internal/instance"
)

var (
	upForce bool
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the project's issue store",
	Long: `Start the Redis-backed issue store for this project.

Creates:
  • An isolated Docker network
  • A Redis container published on 127.0.0.1 (ports 6379-6478)

The project name comes from es.yml. One store runs per project; each
workspace maps to one project unless --force overrides the check.

Examples:
  # Start the store for the current project
  es up

  # Bypass the workspace collision check
  es up --force`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVar(&upForce, "force", false, "Bypass workspace collision check")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Phase 1: Environment validation
	checker := git.NewChecker()
	if err := checker.ValidateGitContext(); err != nil {
		return fmt.Errorf(`not a Git repository

es requires initialization from within a Git repository.

Run these commands in order:
  1. git init
  2. es init
  3. es up

Error: %w`, err)
	}

	// Phase 2: Configuration
	cfg, err := config.Load(config.DefaultFileName)
	if err != nil {
		return fmt.Errorf(`es.yml not found or invalid

No configuration file found in the current directory.

Initialize your project first:
  es init

Then retry: es up

Error details: %w`, err)
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	// Phase 3: Name validation and collision check
	if err := instance.ValidateName(cfg.Project); err != nil {
		return err
	}

	nameCollision, err := instance.CheckNameCollision(ctx, cli, cfg.Project)
	if err != nil {
		return err
	}
	if nameCollision {
		return fmt.Errorf(`store for project '%s' already exists

Found existing containers for this project.

Either:
  1. Stop the existing store: es down
  2. Rename the project in es.yml`, cfg.Project)
	}

	// Phase 4: Workspace safety check
	workspacePath, err := instance.GetCanonicalWorkspacePath(ctx, cli, ".")
	if err != nil {
		return fmt.Errorf("failed to get workspace path: %w", err)
	}

	if !upForce {
		collision, err := instance.CheckWorkspaceCollision(ctx, cli, workspacePath, cfg.Project)
		if err != nil {
			return fmt.Errorf("failed to check workspace collision: %w", err)
		}
		if collision != nil {
			return fmt.Errorf(`workspace in use

Another project '%s' is already running on this workspace:
  Workspace: %s
  Project:   %s

Either:
  1. Stop the other project's store: es down
  2. Use --force to bypass this check (not recommended)`, collision.ProjectName, collision.WorkspacePath, collision.ProjectName)
		}
	}

	// Phase 5: Resource creation
	runID := dockerpkg.GenerateRunID()
	port, err := createStore(ctx, cli, cfg, runID, workspacePath)
	if err != nil {
		fmt.Printf("\nResource creation failed. Rolling back...\n")
		if rollbackErr := rollbackStore(ctx, cli, cfg.Project); rollbackErr != nil {
			fmt.Printf("Warning: rollback encountered errors: %v\n", rollbackErr)
		}
		return fmt.Errorf("failed to start store: %w", err)
	}

	printUpSuccess(cfg.Project, workspacePath, port)

	return nil
}

func createStore(ctx context.Context, cli *client.Client, cfg *config.Config, runID, workspacePath string) (int, error) {
	// Step 1: Allocate store port
	port, err := instance.FindNextAvailablePort(ctx, cli)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate store port: %w", err)
	}

	fmt.Printf("✓ Allocated store port: %d\n", port)

	// Step 2: Create isolated network
	networkName := dockerpkg.NetworkName(cfg.Project)
	networkLabels := dockerpkg.BuildLabels(cfg.Project, runID, workspacePath, "")

	_, err = cli.NetworkCreate(ctx, networkName, types.NetworkCreate{
		Driver: "bridge",
		Labels: networkLabels,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create network '%s': %w", networkName, err)
	}

	fmt.Printf("✓ Created network: %s\n", networkName)

	// Step 3: Start the store container with port mapping
	storeImage := "redis:7-alpine"
	if cfg.Store != nil && cfg.Store.Image != "" {
		storeImage = cfg.Store.Image
	}

	storeName := dockerpkg.StoreContainerName(cfg.Project)
	storeLabels := dockerpkg.BuildLabels(cfg.Project, runID, workspacePath, dockerpkg.ComponentStore)
	storeLabels[dockerpkg.LabelStorePort] = fmt.Sprintf("%d", port)

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  storeImage,
		Labels: storeLabels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode(networkName),
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: fmt.Sprintf("%d", port),
				},
			},
		},
	}, nil, nil, storeName)
	if err != nil {
		return 0, fmt.Errorf("failed to create store container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("failed to start store container: %w", err)
	}

	fmt.Printf("✓ Started store container: %s (port %d)\n", storeName, port)

	return port, nil
}

func rollbackStore(ctx context.Context, cli *client.Client, projectName string) error {
	timeout := 10

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, projectName)),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range containers {
		fmt.Printf("  Stopping %s...\n", c.Names[0])
		_ = cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})

		fmt.Printf("  Removing %s...\n", c.Names[0])
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			fmt.Printf("  Warning: failed to remove %s: %v\n", c.Names[0], err)
		}
	}

	networks, err := cli.NetworkList(ctx, types.NetworkListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, projectName)),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}

	for _, net := range networks {
		fmt.Printf("  Removing network %s...\n", net.Name)
		if err := cli.NetworkRemove(ctx, net.ID); err != nil {
			fmt.Printf("  Warning: failed to remove network %s: %v\n", net.Name, err)
		}
	}

	return nil
}

func printUpSuccess(projectName, workspacePath string, port int) {
	fmt.Printf("\n✓ Store for project '%s' started successfully\n\n", projectName)
	fmt.Printf("Containers:\n")
	fmt.Printf("  • %s (running, port %d)\n", dockerpkg.StoreContainerName(projectName), port)
	fmt.Printf("\n")
	fmt.Printf("Network:\n")
	fmt.Printf("  • %s\n", dockerpkg.NetworkName(projectName))
	fmt.Printf("\n")
	fmt.Printf("Workspace: %s\n", workspacePath)
	fmt.Printf("\n")
	fmt.Printf("Next steps:\n")
	fmt.Printf("  1. Run 'es create \"your first issue\"' to file work\n")
	fmt.Printf("  2. Run 'es ready' to see unblocked issues\n")
	fmt.Printf("  3. Run 'es down' when finished\n")
}
