package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// NewClient connects to the Docker daemon that hosts the per-project
// Redis store containers. All store lifecycle paths (es up, es down,
// es instances, and the commands that discover a running store) go
// through this constructor. The daemon is pinged up front so a stopped
// Docker surfaces as one clear error instead of failing mid-operation.
func NewClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf(`Docker daemon not accessible: %w

Ensure Docker is running:
  • macOS: Docker Desktop
  • Linux: sudo systemctl start docker`, err)
	}

	return cli, nil
}
