package runbooks

import (
	"context"
	"strconv"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// AppInventory reports the tenant-wide detected application inventory with
// per-app device counts.
type AppInventory struct{}

var MinDevicesOpt = types.Option{
	Name:        "min-devices",
	Description: "Only apps detected on at least this many devices",
	Default:     "1",
	Value:       "1",
	Type:        types.Int,
}

func (r *AppInventory) Metadata() Metadata {
	return Metadata{
		Name:        "app-inventory",
		Description: "Report detected applications across the fleet",
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/intune-devices-detectedapp-list",
		},
	}
}

func (r *AppInventory) Options() []*types.Option {
	return CloneOptions(&MinDevicesOpt)
}

func (r *AppInventory) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	apps, err := intune.ListDetectedApps(ctx, env.Graph)
	if err != nil {
		return nil, err
	}

	minDevices := env.OptionInt(MinDevicesOpt.Name, 1)
	kept := apps[:0]
	for _, app := range apps {
		if app.DeviceCount >= minDevices {
			kept = append(kept, app)
		}
	}

	env.Logger.Info("building app inventory",
		"apps", len(kept),
		"min_devices", minDevices)

	rows := make([]types.DetectedApp, 0, len(kept))

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[types.DetectedApp](size, delay)
	processor.Logger = env.Logger

	stats, err := processor.Run(ctx, kept, func(ctx context.Context, app types.DetectedApp, stats *batch.RunStatistics) error {
		rows = append(rows, app)
		stats.Succeeded++
		stats.IncrementCategory("platform_" + osKey(app.Platform))
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := r.Metadata().Name
	return stats, emitReport(env, name, rows, inventoryTable(rows), "")
}

func inventoryTable(rows []types.DetectedApp) types.MarkdownTable {
	table := types.MarkdownTable{
		TableHeading: "Detected Applications",
		Headers:      []string{"Application", "Version", "Publisher", "Platform", "Devices"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.DisplayName,
			row.Version,
			row.Publisher,
			row.Platform,
			strconv.Itoa(row.DeviceCount),
		})
	}
	return table
}
