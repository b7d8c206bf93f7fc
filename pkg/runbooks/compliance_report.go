package runbooks

import (
	"context"
	"strings"
	"time"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/outputs"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/sinks"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// ComplianceReport inventories the fleet's compliance state, drilling into
// per-policy evaluations for noncompliant devices, and optionally ships the
// rows to Log Analytics and the report file to blob storage.
type ComplianceReport struct{}

var (
	DCEOpt = types.Option{
		Name:        "dce",
		Description: "Log Analytics data collection endpoint URL; empty disables ingestion",
		Type:        types.String,
	}

	DCROpt = types.Option{
		Name:        "dcr",
		Description: "Data collection rule immutable ID",
		Type:        types.String,
	}

	StreamOpt = types.Option{
		Name:        "stream",
		Description: "Data collection stream name",
		Default:     "Custom-IntuneCompliance_CL",
		Value:       "Custom-IntuneCompliance_CL",
		Type:        types.String,
	}

	StorageAccountOpt = types.Option{
		Name:        "storage-account",
		Description: "Storage account URL the report file is uploaded to; empty disables upload",
		Type:        types.String,
	}

	StorageContainerOpt = types.Option{
		Name:        "storage-container",
		Description: "Blob container for the report file",
		Default:     "reports",
		Value:       "reports",
		Type:        types.String,
	}
)

// ComplianceRow is one device in the report.
type ComplianceRow struct {
	DeviceName      string    `json:"deviceName"`
	OperatingSystem string    `json:"operatingSystem"`
	OSVersion       string    `json:"osVersion"`
	ComplianceState string    `json:"complianceState"`
	LastSync        time.Time `json:"lastSyncDateTime"`
	User            string    `json:"userPrincipalName"`
	SerialNumber    string    `json:"serialNumber"`
	FailedPolicies  []string  `json:"failedPolicies,omitempty"`
}

func (r *ComplianceReport) Metadata() Metadata {
	return Metadata{
		Name:        "compliance-report",
		Description: "Report device compliance state across the fleet",
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/intune-devices-manageddevice-list",
			"https://learn.microsoft.com/en-us/graph/api/intune-deviceconfig-devicecompliancepolicystate-list",
		},
	}
}

func (r *ComplianceReport) Options() []*types.Option {
	return CloneOptions(&OSOpt, &DCEOpt, &DCROpt, &StreamOpt, &StorageAccountOpt, &StorageContainerOpt)
}

func (r *ComplianceReport) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	devices, err := intune.ListManagedDevices(ctx, env.Graph, intune.DeviceFilter{
		OS: env.OptionValue(OSOpt.Name),
	})
	if err != nil {
		return nil, err
	}

	env.Logger.Info("building compliance report", "devices", len(devices))

	rows := make([]ComplianceRow, 0, len(devices))

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[types.ManagedDevice](size, delay)
	processor.Logger = env.Logger

	stats, err := processor.Run(ctx, devices, func(ctx context.Context, device types.ManagedDevice, stats *batch.RunStatistics) error {
		row := ComplianceRow{
			DeviceName:      device.DeviceName,
			OperatingSystem: device.OperatingSystem,
			OSVersion:       device.OSVersion,
			ComplianceState: device.ComplianceState,
			LastSync:        device.LastSyncDateTime,
			User:            device.UserPrincipalName,
			SerialNumber:    device.SerialNumber,
		}

		if strings.EqualFold(device.ComplianceState, "noncompliant") {
			states, err := intune.ListCompliancePolicyStates(ctx, env.Graph, device.ID)
			if err != nil {
				return err
			}
			for _, state := range states {
				if strings.EqualFold(state.State, "noncompliant") || strings.EqualFold(state.State, "error") {
					row.FailedPolicies = append(row.FailedPolicies, state.DisplayName)
				}
			}
		}

		rows = append(rows, row)
		stats.Succeeded++
		stats.IncrementCategory("os_" + osKey(device.OperatingSystem))
		stats.IncrementCategory("state_" + osKey(device.ComplianceState))
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := r.Metadata().Name
	filename := outputs.DefaultFileName(name, "json")
	table := complianceTable(rows)
	if err := emitReport(env, name, rows, table, filename); err != nil {
		return stats, err
	}

	if endpoint := env.OptionValue(DCEOpt.Name); endpoint != "" {
		if err := r.ingest(ctx, env, endpoint, rows); err != nil {
			return stats, err
		}
	}

	if account := env.OptionValue(StorageAccountOpt.Name); account != "" {
		if !formatEnabled(env, "json") {
			env.Logger.Warn("skipping blob upload, the json format is not enabled so no rows file was written")
		} else {
			container := env.OptionValue(StorageContainerOpt.Name)
			path := outputs.GetFullPath(filename, env.OptionValue("output"))
			if err := sinks.UploadReport(ctx, env.Credential, account, container, path, env.DryRun); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

func (r *ComplianceReport) ingest(ctx context.Context, env *Env, endpoint string, rows []ComplianceRow) error {
	token, err := env.Tokens.AcquireToken(ctx, graph.MonitorAudience)
	if err != nil {
		return err
	}

	monitor := graph.NewClient(token,
		graph.WithRetryPolicy(env.RetryPolicy()),
		graph.WithLogger(env.Logger))

	la := sinks.NewLogAnalytics(monitor, endpoint,
		env.OptionValue(DCROpt.Name),
		env.OptionValue(StreamOpt.Name),
		env.DryRun)
	return la.Ingest(ctx, rows)
}

func complianceTable(rows []ComplianceRow) types.MarkdownTable {
	table := types.MarkdownTable{
		TableHeading: "Device Compliance",
		Headers:      []string{"Device", "OS", "State", "Last Sync", "User", "Failed Policies"},
	}
	for _, row := range rows {
		lastSync := ""
		if !row.LastSync.IsZero() {
			lastSync = row.LastSync.Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			row.DeviceName,
			row.OperatingSystem,
			row.ComplianceState,
			lastSync,
			row.User,
			strings.Join(row.FailedPolicies, "; "),
		})
	}
	return table
}
