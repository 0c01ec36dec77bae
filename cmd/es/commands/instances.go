package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	dockerpkg "github.com/hirefrank/edgestack/internal/docker"
	"github.com/hirefrank/edgestack/internal/instance"
)

var (
	instancesJSON bool
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List all running project stores",
	Long: `List all edgestack project stores by querying Docker for containers
with the es.managed label.

For each project, displays:
  • Project name
  • Status (Running/Degraded/Stopped)
  • Workspace path
  • Store port
  • Uptime (for running stores)

Use --json for machine-readable output.`,
	RunE: runInstances,
}

func init() {
	instancesCmd.Flags().BoolVar(&instancesJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(instancesCmd)
}

func runInstances(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	infos, err := instance.ListProjects(ctx, cli)
	if err != nil {
		return err
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	if instancesJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No project stores found.")
		fmt.Println("\nStart one with: es up")
		return nil
	}

	fmt.Printf("%-20s %-10s %-8s %-40s %s\n", "PROJECT", "STATUS", "PORT", "WORKSPACE", "UPTIME")
	for _, info := range infos {
		port := "-"
		if info.Port != 0 {
			port = fmt.Sprintf("%d", info.Port)
		}
		fmt.Printf("%-20s %-10s %-8s %-40s %s\n", info.Name, info.Status, port, info.Workspace, info.Uptime)
	}

	return nil
}
