package sinks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
)

const ingestionAPIVersion = "2023-01-01"

// LogAnalytics ships report rows to a Log Analytics data collection
// endpoint. The client must carry a Monitor-scoped token; the upload itself
// rides the same resilient executor as every other call, so throttled
// ingestion backs off like Graph does.
type LogAnalytics struct {
	client   *graph.Client
	endpoint string
	ruleID   string
	stream   string
	dryRun   bool
}

func NewLogAnalytics(client *graph.Client, endpoint, ruleID, stream string, dryRun bool) *LogAnalytics {
	return &LogAnalytics{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		ruleID:   ruleID,
		stream:   stream,
		dryRun:   dryRun,
	}
}

// Ingest posts one batch of rows to the configured stream.
func (l *LogAnalytics) Ingest(ctx context.Context, rows any) error {
	uri := fmt.Sprintf("%s/dataCollectionRules/%s/streams/%s?api-version=%s",
		l.endpoint, l.ruleID, l.stream, ingestionAPIVersion)

	if l.dryRun {
		slog.Info("dry-run: would ingest rows", "stream", l.stream)
		return nil
	}

	spec := graph.RequestSpec{
		Method: http.MethodPost,
		URL:    uri,
		Body:   rows,
	}
	if _, err := l.client.Do(ctx, spec); err != nil {
		return fmt.Errorf("failed to ingest rows into %s: %w", l.stream, err)
	}

	return nil
}
