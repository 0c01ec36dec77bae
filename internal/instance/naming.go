package instance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
)

// MaxNameLength is the maximum length for a project name (DNS-compatible)
const MaxNameLength = 63

// NamePattern is the regex pattern for valid project names.
// Must be DNS-compatible: lowercase alphanumeric, hyphens allowed (but not
// at start/end). Project names become container and network names.
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName checks if a project name is valid according to DNS naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("project name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid project name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// CheckNameCollision checks if a store for the given project already exists.
// Returns true if a collision exists (name is in use).
func CheckNameCollision(ctx context.Context, cli *client.Client, projectName string) (bool, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelProjectName, projectName))

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for name collision: %w", err)
	}

	return len(containers) > 0, nil
}
