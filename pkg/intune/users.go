package intune

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphgocore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

const userSelect = "id,displayName,userPrincipalName,mail,department,jobTitle,usageLocation,accountEnabled"

// GetUser looks a user up by object ID or userPrincipalName.
func GetUser(ctx context.Context, c *graph.Client, idOrUPN string) (*types.User, error) {
	uri := baseURL + "/users/" + url.PathEscape(idOrUPN) + "?$select=" + userSelect

	var user types.User
	spec := graph.RequestSpec{Method: http.MethodGet, URL: uri}
	if err := c.DoJSON(ctx, spec, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser patches the given attributes onto a user. Graph answers 204 on
// success.
func UpdateUser(ctx context.Context, c *graph.Client, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}

	spec := graph.RequestSpec{
		Method: http.MethodPatch,
		URL:    baseURL + "/users/" + url.PathEscape(id),
		Body:   patch,
	}
	_, err := c.Do(ctx, spec)
	return err
}

// ListGroupMemberIDs returns the object IDs of a group's direct members.
// This is an advanced directory query, so it goes through the Graph SDK with
// ConsistencyLevel eventual and the SDK's page iterator rather than the raw
// collector.
func ListGroupMemberIDs(ctx context.Context, client *msgraphsdk.GraphServiceClient, groupID string) ([]string, error) {
	headers := abstractions.NewRequestHeaders()
	headers.Add("ConsistencyLevel", "eventual")

	requestCount := true
	config := &groups.ItemMembersRequestBuilderGetRequestConfiguration{
		Headers: headers,
		QueryParameters: &groups.ItemMembersRequestBuilderGetQueryParameters{
			Select: []string{"id"},
			Count:  &requestCount,
		},
	}

	result, err := client.Groups().ByGroupId(groupID).Members().Get(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of group %s: %w", groupID, err)
	}

	iterator, err := msgraphgocore.NewPageIterator[models.DirectoryObjectable](
		result, client.GetAdapter(), models.CreateDirectoryObjectCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create member page iterator: %w", err)
	}

	var ids []string
	err = iterator.Iterate(ctx, func(member models.DirectoryObjectable) bool {
		if id := member.GetId(); id != nil {
			ids = append(ids, *id)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to page members of group %s: %w", groupID, err)
	}

	return ids, nil
}
