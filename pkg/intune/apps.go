package intune

import (
	"context"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// ListDetectedApps returns the tenant-wide application inventory with
// per-app device counts.
func ListDetectedApps(ctx context.Context, c *graph.Client) ([]types.DetectedApp, error) {
	uri := baseURL + "/deviceManagement/detectedApps?$select=id,displayName,version,publisher,platform,deviceCount"
	return graph.CollectAll[types.DetectedApp](ctx, c, uri)
}
