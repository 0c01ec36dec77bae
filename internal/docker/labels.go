package docker

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for es resources
const (
	LabelManaged       = "es.managed"
	LabelProjectName   = "es.project.name"
	LabelRunID         = "es.run_id"
	LabelWorkspacePath = "es.workspace.path"
	LabelComponent     = "es.component"
	LabelStorePort     = "es.store.port"
)

// ComponentStore is the component label value for the Redis store container.
const ComponentStore = "store"

// BuildLabels creates the standard label set for all es resources.
// All parameters are required except component (which is resource-specific).
func BuildLabels(projectName, runID, workspacePath, component string) map[string]string {
	labels := map[string]string{
		LabelManaged:       "true",
		LabelProjectName:   projectName,
		LabelRunID:         runID,
		LabelWorkspacePath: workspacePath,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for a store run.
// Each invocation of `es up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// Resource naming conventions for es components

// NetworkName returns the Docker network name for a project
func NetworkName(projectName string) string {
	return fmt.Sprintf("es-network-%s", projectName)
}

// StoreContainerName returns the Redis store container name for a project
func StoreContainerName(projectName string) string {
	return fmt.Sprintf("es-store-%s", projectName)
}
