package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/hirefrank/edgestack/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Params feeds the es.yml template.
type Params struct {
	Project string
	// Repo is the owner/repo slug inferred from the origin remote.
	// May be empty; the template comments the section out.
	Repo string
}

// Initialize creates es.yml at the current directory (the Git root).
// If force is true, an existing es.yml is removed first.
func Initialize(params Params, force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	content, err := renderConfig(params)
	if err != nil {
		return err
	}

	if err := os.WriteFile(config.DefaultFileName, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.DefaultFileName, err)
	}

	return validateCreatedFile()
}

// handleForce removes the existing config if --force was specified
func handleForce() error {
	if _, err := os.Stat(config.DefaultFileName); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", config.DefaultFileName)
		if err := os.Remove(config.DefaultFileName); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultFileName, err)
		}
	}
	return nil
}

// renderConfig fills the es.yml template with the project parameters
func renderConfig(params Params) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/es.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read es.yml template: %w", err)
	}

	tmpl, err := template.New("es.yml").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse es.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("failed to render es.yml template: %w", err)
	}
	return buf.Bytes(), nil
}

// validateCreatedFile confirms the rendered config parses and validates
func validateCreatedFile() error {
	content, err := os.ReadFile(config.DefaultFileName)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", config.DefaultFileName, err)
	}

	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", config.DefaultFileName, err)
	}

	if _, err := config.Load(config.DefaultFileName); err != nil {
		return fmt.Errorf("created %s failed validation: %w", config.DefaultFileName, err)
	}

	return nil
}

// PrintSuccess prints the success message with next steps
func PrintSuccess(params Params) {
	fmt.Println("\n✅ Successfully initialized es project!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s (project: %s)\n", config.DefaultFileName, params.Project)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'es up' to start the issue store")
	fmt.Println("  2. Run 'es create \"First task\"' to add an issue")
	fmt.Println("  3. Run 'es sync' to link the project to GitHub Issues")
}
