package instance

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/require"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
)

func TestFindNextAvailablePort(t *testing.T) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	defer cli.Close()

	ctx := context.Background()

	t.Run("returns 6379 when no ports used", func(t *testing.T) {
		port, err := FindNextAvailablePort(ctx, cli)
		require.NoError(t, err)
		require.Equal(t, 6379, port)
	})

	t.Run("skips ports that are already bound", func(t *testing.T) {
		listener, err := net.Listen("tcp", "localhost:6379")
		require.NoError(t, err)
		defer listener.Close()

		port, err := FindNextAvailablePort(ctx, cli)
		require.NoError(t, err)
		require.Equal(t, 6380, port)
	})

	t.Run("skips ports used by store containers", func(t *testing.T) {
		pullImageIfNeeded(t, cli, ctx, "busybox:latest")

		labels := map[string]string{
			dockerpkg.LabelManaged:   "true",
			dockerpkg.LabelComponent: dockerpkg.ComponentStore,
			dockerpkg.LabelStorePort: "6379",
		}

		resp, err := cli.ContainerCreate(ctx, &container.Config{
			Image:  "busybox:latest",
			Cmd:    []string{"sleep", "1"},
			Labels: labels,
		}, nil, nil, nil, "")
		require.NoError(t, err)
		defer cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

		port, err := FindNextAvailablePort(ctx, cli)
		require.NoError(t, err)
		require.GreaterOrEqual(t, port, 6380)
	})
}

func TestIsPortBindable(t *testing.T) {
	t.Run("returns true for available port", func(t *testing.T) {
		listener, err := net.Listen("tcp", "localhost:0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		listener.Close()

		require.True(t, isPortBindable(port))
	})

	t.Run("returns false for port in use", func(t *testing.T) {
		listener, err := net.Listen("tcp", "localhost:0")
		require.NoError(t, err)
		defer listener.Close()

		port := listener.Addr().(*net.TCPAddr).Port
		require.False(t, isPortBindable(port))
	})

	t.Run("returns false for privileged ports without permission", func(t *testing.T) {
		result := isPortBindable(80)
		if result {
			t.Skip("Running as root, cannot test privileged port restriction")
		}
		require.False(t, result)
	})
}

func TestFindNextAvailablePort_PartiallyUsedRange(t *testing.T) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skip("Docker not available")
	}
	defer cli.Close()

	ctx := context.Background()

	// Bind a block of ports to simulate heavy use of the range
	listeners := []net.Listener{}
	for port := 6379; port < 6390; port++ {
		if listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port)); err == nil {
			listeners = append(listeners, listener)
		}
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	port, err := FindNextAvailablePort(ctx, cli)
	require.NoError(t, err)
	require.GreaterOrEqual(t, port, 6390)
	require.LessOrEqual(t, port, 6478)
}
