package scaffold

import (
	"fmt"
	"os"

	"github.com/hirefrank/edgestack/internal/config"
)

// CheckExisting checks if es.yml already exists.
// Returns an error if it does, nil otherwise.
func CheckExisting() error {
	if _, err := os.Stat(config.DefaultFileName); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'es init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultFileName)
	}
	return nil
}
