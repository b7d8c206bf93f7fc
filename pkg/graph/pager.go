package graph

import (
	"context"
	"net/http"
)

// listEnvelope is the wire shape of one page of a Graph collection. NextLink
// is opaque: present means more pages exist, absent means the collection is
// complete.
type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// CollectAll walks a paginated list endpoint starting at uri, following the
// continuation link until the server stops returning one, and returns every
// item in server order. A failure on any page aborts the whole collection
// with a *PageFetchError; partial results are never returned, since a
// missing page would silently under-report the working set.
func CollectAll[T any](ctx context.Context, c *Client, uri string) ([]T, error) {
	return CollectAllWithPolicy[T](ctx, c, uri, nil)
}

// CollectAllWithPolicy is CollectAll with a per-collection retry policy
// override applied to every page request.
func CollectAllWithPolicy[T any](ctx context.Context, c *Client, uri string, retry *RetryPolicy) ([]T, error) {
	var items []T

	for page := 1; uri != ""; page++ {
		var envelope listEnvelope[T]
		spec := RequestSpec{
			Method: http.MethodGet,
			URL:    uri,
			Retry:  retry,
		}
		if err := c.DoJSON(ctx, spec, &envelope); err != nil {
			return nil, &PageFetchError{Page: page, URI: uri, Err: err}
		}

		items = append(items, envelope.Value...)
		uri = envelope.NextLink
	}

	return items, nil
}
