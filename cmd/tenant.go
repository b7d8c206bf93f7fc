package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/helpers"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
)

// tenantCmd is the quick credential smoke test: if this works, the
// runbooks' managed identity is wired correctly.
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Show the tenant the current credential resolves to",
	RunE: func(cmd *cobra.Command, args []string) error {
		cred, err := helpers.GetAzureCredentials()
		if err != nil {
			message.Critical("%v", err)
			return err
		}

		name, id, err := helpers.GetTenantDetails(cmd.Context(), cred)
		if err != nil {
			message.Critical("%v", err)
			return err
		}

		message.Success("Tenant: %s (%s)", name, id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
}
