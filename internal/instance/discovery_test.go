package instance

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/require"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
)

// pullImageIfNeeded pulls a Docker image if it doesn't exist locally
func pullImageIfNeeded(t *testing.T, cli *client.Client, ctx context.Context, imageName string) {
	t.Helper()

	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return
	}

	t.Logf("Pulling image %s...", imageName)
	reader, err := cli.ImagePull(ctx, imageName, types.ImagePullOptions{})
	if err != nil {
		t.Fatalf("Failed to pull image %s: %v", imageName, err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		t.Fatalf("Failed to complete image pull %s: %v", imageName, err)
	}
	t.Logf("Successfully pulled %s", imageName)
}

func TestFindProjectByWorkspace(t *testing.T) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	defer cli.Close()

	ctx := context.Background()

	t.Run("returns project name when one match found", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		// Canonicalize /tmp (on macOS it is a symlink to /private/tmp)
		workspacePath, err := filepath.EvalSymlinks("/tmp")
		require.NoError(t, err)
		workspacePath, err = filepath.Abs(workspacePath)
		require.NoError(t, err)

		labels := map[string]string{
			dockerpkg.LabelManaged:       "true",
			dockerpkg.LabelProjectName:   "test-project",
			dockerpkg.LabelWorkspacePath: workspacePath,
			dockerpkg.LabelComponent:     dockerpkg.ComponentStore,
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		projectName, err := FindProjectByWorkspace(ctx, cli, workspacePath)
		require.NoError(t, err)
		require.Equal(t, "test-project", projectName)
	})

	t.Run("returns error when no projects found", func(t *testing.T) {
		_, err := FindProjectByWorkspace(ctx, cli, "/usr")
		require.Error(t, err)
		require.Contains(t, err.Error(), "no projects found")
	})

	t.Run("returns error when multiple projects found", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		sharedWorkspace := "/usr"

		labels1 := map[string]string{
			dockerpkg.LabelManaged:       "true",
			dockerpkg.LabelProjectName:   "project-1",
			dockerpkg.LabelWorkspacePath: sharedWorkspace,
			dockerpkg.LabelComponent:     dockerpkg.ComponentStore,
		}
		labels2 := map[string]string{
			dockerpkg.LabelManaged:       "true",
			dockerpkg.LabelProjectName:   "project-2",
			dockerpkg.LabelWorkspacePath: sharedWorkspace,
			dockerpkg.LabelComponent:     dockerpkg.ComponentStore,
		}

		resp1, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels1,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp1.ID, container.RemoveOptions{Force: true})

		resp2, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels2,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp2.ID, container.RemoveOptions{Force: true})

		_, err = FindProjectByWorkspace(ctx, cli, sharedWorkspace)
		require.Error(t, err)
		require.Contains(t, err.Error(), "multiple projects found")
	})
}

func TestGetStorePort(t *testing.T) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	defer cli.Close()

	ctx := context.Background()

	t.Run("returns port from store container label", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		labels := map[string]string{
			dockerpkg.LabelManaged:     "true",
			dockerpkg.LabelProjectName: "test-project",
			dockerpkg.LabelComponent:   dockerpkg.ComponentStore,
			dockerpkg.LabelStorePort:   "6380",
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		port, err := GetStorePort(ctx, cli, "test-project")
		require.NoError(t, err)
		require.Equal(t, 6380, port)
	})

	t.Run("returns error when store container not found", func(t *testing.T) {
		_, err := GetStorePort(ctx, cli, "nonexistent-project")
		require.Error(t, err)
		require.Contains(t, err.Error(), "store container not found")
	})

	t.Run("returns error when port label missing", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		labels := map[string]string{
			dockerpkg.LabelManaged:     "true",
			dockerpkg.LabelProjectName: "test-project-no-port",
			dockerpkg.LabelComponent:   dockerpkg.ComponentStore,
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		_, err = GetStorePort(ctx, cli, "test-project-no-port")
		require.Error(t, err)
		require.Contains(t, err.Error(), "port label missing")
	})
}

func TestVerifyStoreRunning(t *testing.T) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	defer cli.Close()

	ctx := context.Background()

	t.Run("returns nil when store is running", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		labels := map[string]string{
			dockerpkg.LabelManaged:     "true",
			dockerpkg.LabelProjectName: "running-project",
			dockerpkg.LabelComponent:   dockerpkg.ComponentStore,
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "10"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		err = cli.ContainerStart(ctx, resp.ID, container.StartOptions{})
		require.NoError(t, err)

		err = VerifyStoreRunning(ctx, cli, "running-project")
		require.NoError(t, err)
	})

	t.Run("returns error when store not found", func(t *testing.T) {
		err := VerifyStoreRunning(ctx, cli, "nonexistent-project")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found")
	})

	t.Run("returns error when store not running", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		// Create but don't start the store container
		labels := map[string]string{
			dockerpkg.LabelManaged:     "true",
			dockerpkg.LabelProjectName: "stopped-project",
			dockerpkg.LabelComponent:   dockerpkg.ComponentStore,
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		err = VerifyStoreRunning(ctx, cli, "stopped-project")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not running")
	})
}
