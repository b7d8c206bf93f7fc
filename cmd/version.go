package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of intunectl",
	Run: func(cmd *cobra.Command, args []string) {
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
