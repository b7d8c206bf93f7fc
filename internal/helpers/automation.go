package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/automation/armautomation"
	"github.com/spf13/viper"
)

// ParseAutomationAccountRef splits a
// <subscription>/<resourceGroup>/<account> reference.
func ParseAutomationAccountRef(ref string) (subscription, resourceGroup, account string, err error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("automation account reference %q is not <subscription>/<resourceGroup>/<account>", ref)
	}
	return parts[0], parts[1], parts[2], nil
}

// HydrateFromAutomationAccount reads the legacy runbooks' Automation-account
// variables and seeds them as viper defaults, keyed by the lowercased
// variable name. Flags and environment variables still win; this only fills
// the bottom of the precedence chain so the Go jobs can run against the same
// configuration store during migration. Encrypted variables are skipped:
// their values are not readable through the management plane.
func HydrateFromAutomationAccount(ctx context.Context, cred azcore.TokenCredential, ref string) error {
	subscription, resourceGroup, account, err := ParseAutomationAccountRef(ref)
	if err != nil {
		return err
	}

	client, err := armautomation.NewVariableClient(subscription, cred, nil)
	if err != nil {
		return fmt.Errorf("failed to create automation variable client: %w", err)
	}

	hydrated := 0
	pager := client.NewListByAutomationAccountPager(resourceGroup, account, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list automation variables: %w", err)
		}

		for _, variable := range page.Value {
			if variable.Name == nil || variable.Properties == nil || variable.Properties.Value == nil {
				continue
			}
			if variable.Properties.IsEncrypted != nil && *variable.Properties.IsEncrypted {
				slog.Debug("skipping encrypted automation variable", "name", *variable.Name)
				continue
			}

			viper.SetDefault(strings.ToLower(*variable.Name), decodeVariableValue(*variable.Properties.Value))
			hydrated++
		}
	}

	slog.Info("hydrated configuration from automation account",
		"account", account,
		"variables", hydrated)
	return nil
}

// decodeVariableValue unwraps the JSON encoding Automation applies to
// variable values, so a stored "50" or "\"fleet\"" comes back as the plain
// scalar.
func decodeVariableValue(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}
