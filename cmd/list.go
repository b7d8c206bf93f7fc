package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Display available runbooks grouped by category",
	Run: func(cmd *cobra.Command, args []string) {
		noColor, _ := cmd.Flags().GetBool("no-color")
		if noColor {
			color.NoColor = true
		}
		displayRunbookTree()
	},
}

func displayRunbookTree() {
	hierarchy := registry.GetHierarchy()

	categories := make([]string, 0, len(hierarchy))
	for category := range hierarchy {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	bold := color.New(color.Bold)

	for i, category := range categories {
		fmt.Printf("\n%s\n", bold.Sprint(category))

		for _, name := range hierarchy[category] {
			entry, _ := registry.GetRegistryEntry(name)
			meta := entry.Runbook.Metadata()
			marker := ""
			if meta.Mutating {
				marker = " (mutating)"
			}
			fmt.Printf("├─ %s - %s%s\n", name, meta.Description, marker)
		}

		if i < len(categories)-1 {
			fmt.Println()
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(listCmd)
}
