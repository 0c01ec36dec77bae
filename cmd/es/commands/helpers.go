package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hirefrank/edgestack/internal/config"
	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
	"github.com/hirefrank/edgestack/internal/instance"
	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/internal/resolver"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

// loadConfig reads es.yml from the current directory with a friendly
// error when the project has not been initialized yet.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.DefaultFileName)
	if err != nil {
		return nil, printer.Error(
			"es.yml not found or invalid",
			fmt.Sprintf("Could not load project configuration: %v", err),
			"Initialize your project first:\n  es init",
			"Then start the store:\n  es up",
		)
	}
	return cfg, nil
}

// openStore loads es.yml, verifies the project's store container is
// running, and returns a connected tracker client. Caller must Close()
// the returned client.
func openStore(ctx context.Context) (*tracker.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer cli.Close()

	if err := instance.VerifyStoreRunning(ctx, cli, cfg.Project); err != nil {
		return nil, nil, printer.Error(
			fmt.Sprintf("store for project '%s' is not running", cfg.Project),
			fmt.Sprintf("Error: %v", err),
			"Start the store:\n  es up",
		)
	}

	port, err := instance.GetStorePort(ctx, cli, cfg.Project)
	if err != nil {
		return nil, nil, printer.Error(
			"store port not found",
			fmt.Sprintf("The store container for project '%s' exists but its port label is missing.", cfg.Project),
			"Restart the store:\n  es down\n  es up",
		)
	}

	client, err := tracker.NewClient(&redis.Options{Addr: instance.GetRedisAddr(port)}, cfg.Project)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, printer.Error(
			"store connection failed",
			fmt.Sprintf("Could not connect to the store at %s: %v", instance.GetRedisAddr(port), err),
			fmt.Sprintf("Check the store container:\n  docker logs %s", dockerpkg.StoreContainerName(cfg.Project)),
			"Restart if needed:\n  es down\n  es up",
		)
	}

	return client, cfg, nil
}

// resolveID expands a short id fragment into a full issue ID with
// friendly errors for ambiguous and unknown fragments.
func resolveID(ctx context.Context, client *tracker.Client, arg string) (string, error) {
	id, err := resolver.ResolveIssueID(ctx, client, arg)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			return "", fmt.Errorf("%s", resolver.FormatAmbiguousError(ambiguous))
		}
		if resolver.IsNotFoundError(err) {
			return "", printer.Error(
				fmt.Sprintf("issue '%s' not found", arg),
				"No issue matches that id or prefix.",
				"List issues:\n  es list",
			)
		}
		return "", err
	}
	return id, nil
}
