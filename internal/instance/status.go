package instance

import (
	"github.com/docker/docker/api/types"
)

// Status represents the health status of a project's store
type Status string

const (
	// StatusRunning indicates all containers are running
	StatusRunning Status = "Running"

	// StatusDegraded indicates some containers are stopped or missing
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates all containers exist but are stopped
	StatusStopped Status = "Stopped"
)

// DetermineStatus analyzes a set of containers and determines the overall
// store status.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	runningCount := 0
	for _, c := range containers {
		if c.State == "running" {
			runningCount++
		}
	}

	if runningCount == len(containers) {
		return StatusRunning
	} else if runningCount > 0 {
		return StatusDegraded
	} else {
		return StatusStopped
	}
}

// ProjectInfo holds information about a project's store
type ProjectInfo struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Workspace string `json:"workspace"`
	Port      int    `json:"port"`
	Uptime    string `json:"uptime"`
}
