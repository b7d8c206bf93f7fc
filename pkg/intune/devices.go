// Package intune wraps the Graph endpoints the runbooks operate on with
// typed operations built on the resilient request core. List calls collect
// every page; mutations expect the 204 Graph returns for device actions.
package intune

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// baseURL is swapped for a test server in package tests.
var baseURL = graph.BaseURL

const deviceSelect = "id,deviceName,operatingSystem,osVersion,complianceState," +
	"lastSyncDateTime,enrolledDateTime,userId,userPrincipalName,userDisplayName," +
	"emailAddress,serialNumber,model,manufacturer,deviceCategoryDisplayName"

// DeviceFilter narrows a managed-device listing. OS filters server-side;
// StaleDays keeps only devices that have not synced for at least that many
// days and is applied client-side, since lastSyncDateTime comparisons are
// unreliable in Graph $filter for this resource.
type DeviceFilter struct {
	OS        string
	StaleDays int
	Now       time.Time
}

// ListManagedDevices returns the Intune device fleet, paged to completion.
func ListManagedDevices(ctx context.Context, c *graph.Client, filter DeviceFilter) ([]types.ManagedDevice, error) {
	query := url.Values{}
	query.Set("$select", deviceSelect)
	if filter.OS != "" {
		query.Set("$filter", fmt.Sprintf("operatingSystem eq '%s'", filter.OS))
	}

	uri := baseURL + "/deviceManagement/managedDevices?" + query.Encode()
	devices, err := graph.CollectAll[types.ManagedDevice](ctx, c, uri)
	if err != nil {
		return nil, err
	}

	if filter.StaleDays <= 0 {
		return devices, nil
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}

	stale := devices[:0]
	for _, device := range devices {
		if days := device.DaysSinceSync(now); days < 0 || days >= filter.StaleDays {
			stale = append(stale, device)
		}
	}
	return stale, nil
}

// SyncDevice triggers an Intune check-in for one device.
func SyncDevice(ctx context.Context, c *graph.Client, deviceID string) error {
	spec := graph.RequestSpec{
		Method: http.MethodPost,
		URL:    baseURL + "/deviceManagement/managedDevices/" + deviceID + "/syncDevice",
	}
	_, err := c.Do(ctx, spec)
	return err
}

// ListDeviceCategories returns the tenant's device categories.
func ListDeviceCategories(ctx context.Context, c *graph.Client) ([]types.DeviceCategory, error) {
	uri := baseURL + "/deviceManagement/deviceCategories?$select=id,displayName,description"
	return graph.CollectAll[types.DeviceCategory](ctx, c, uri)
}

// AssignDeviceCategory points a device at a category by reference.
func AssignDeviceCategory(ctx context.Context, c *graph.Client, deviceID, categoryID string) error {
	spec := graph.RequestSpec{
		Method: http.MethodPut,
		URL:    baseURL + "/deviceManagement/managedDevices/" + deviceID + "/deviceCategory/$ref",
		Body: map[string]string{
			"@odata.id": baseURL + "/deviceManagement/deviceCategories/" + categoryID,
		},
	}
	_, err := c.Do(ctx, spec)
	return err
}

// ListDeviceDetectedApps returns the applications inventoried on one device.
func ListDeviceDetectedApps(ctx context.Context, c *graph.Client, deviceID string) ([]types.DetectedApp, error) {
	uri := baseURL + "/deviceManagement/managedDevices/" + deviceID +
		"/detectedApps?$select=id,displayName,version,publisher,platform,deviceCount"
	return graph.CollectAll[types.DetectedApp](ctx, c, uri)
}

// ListCompliancePolicyStates returns a device's per-policy compliance
// evaluations.
func ListCompliancePolicyStates(ctx context.Context, c *graph.Client, deviceID string) ([]types.CompliancePolicyState, error) {
	uri := baseURL + "/deviceManagement/managedDevices/" + deviceID + "/deviceCompliancePolicyStates"
	return graph.CollectAll[types.CompliancePolicyState](ctx, c, uri)
}
