package intune

import (
	"context"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// ListApplications returns every app registration with its password and key
// credentials. Graph never returns secret values here, only metadata and end
// dates.
func ListApplications(ctx context.Context, c *graph.Client) ([]types.Application, error) {
	uri := baseURL + "/applications?$select=id,appId,displayName,passwordCredentials,keyCredentials"
	return graph.CollectAll[types.Application](ctx, c, uri)
}
