package runbooks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/sinks"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// CredentialExpiry reports app registration secrets and certificates that
// are expired or expiring soon, with an optional Teams alert.
type CredentialExpiry struct {
	// now is injectable for tests; zero means time.Now.
	now time.Time
}

var (
	ExpiryDaysOpt = types.Option{
		Name:        "expiry-days",
		Description: "Report credentials expiring within this many days",
		Default:     "30",
		Value:       "30",
		Type:        types.Int,
	}

	TeamsWebhookOpt = types.Option{
		Name:        "teams-webhook",
		Description: "Teams incoming webhook URL for an expiry alert; empty disables",
		Type:        types.String,
	}
)

// ExpiryRow is one expiring or expired credential.
type ExpiryRow struct {
	Application    string    `json:"application"`
	AppID          string    `json:"appId"`
	CredentialType string    `json:"credentialType"`
	KeyID          string    `json:"keyId"`
	DisplayName    string    `json:"displayName"`
	EndDateTime    time.Time `json:"endDateTime"`
	DaysRemaining  int       `json:"daysRemaining"`
	Expired        bool      `json:"expired"`
}

func (r *CredentialExpiry) Metadata() Metadata {
	return Metadata{
		Name:        "credential-expiry",
		Description: "Report app registration secrets and certificates nearing expiry",
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/application-list",
		},
	}
}

func (r *CredentialExpiry) Options() []*types.Option {
	return CloneOptions(&ExpiryDaysOpt, &TeamsWebhookOpt)
}

func (r *CredentialExpiry) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	applications, err := intune.ListApplications(ctx, env.Graph)
	if err != nil {
		return nil, err
	}

	expiryDays := env.OptionInt(ExpiryDaysOpt.Name, 30)
	now := r.now
	if now.IsZero() {
		now = time.Now()
	}

	env.Logger.Info("checking application credentials",
		"applications", len(applications),
		"expiry_days", expiryDays)

	var rows []ExpiryRow

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[types.Application](size, delay)
	processor.Logger = env.Logger

	stats, err := processor.Run(ctx, applications, func(ctx context.Context, app types.Application, stats *batch.RunStatistics) error {
		appRows := ExpiringCredentials(app, now, expiryDays)
		if len(appRows) == 0 {
			stats.MarkSkipped("no_expiring_credentials")
			return nil
		}

		for _, row := range appRows {
			rows = append(rows, row)
			if row.Expired {
				stats.IncrementCategory("expired")
			} else {
				stats.IncrementCategory("expiring")
			}
		}
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := r.Metadata().Name
	if err := emitReport(env, name, rows, expiryTable(rows), ""); err != nil {
		return stats, err
	}

	if webhook := env.OptionValue(TeamsWebhookOpt.Name); webhook != "" && len(rows) > 0 {
		teams := sinks.NewTeamsWebhook(webhook, env.DryRun,
			graph.WithRetryPolicy(env.RetryPolicy()),
			graph.WithLogger(env.Logger))
		facts := map[string]string{
			"Expired":              strconv.Itoa(stats.Categories["expired"]),
			"Expiring soon":        strconv.Itoa(stats.Categories["expiring"]),
			"Applications checked": strconv.Itoa(stats.Processed),
		}
		text := fmt.Sprintf("%d app registration credentials are expired or expire within %d days.", len(rows), expiryDays)
		if err := teams.Post(ctx, "App registration credentials expiring", text, facts); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// ExpiringCredentials returns the rows for one application's credentials
// that end within the window, including ones already past their end date.
func ExpiringCredentials(app types.Application, now time.Time, expiryDays int) []ExpiryRow {
	cutoff := now.AddDate(0, 0, expiryDays)

	var rows []ExpiryRow
	appendRows := func(creds []types.Credential, credentialType string) {
		for _, cred := range creds {
			if cred.EndDateTime.IsZero() || cred.EndDateTime.After(cutoff) {
				continue
			}
			rows = append(rows, ExpiryRow{
				Application:    app.DisplayName,
				AppID:          app.AppID,
				CredentialType: credentialType,
				KeyID:          cred.KeyID,
				DisplayName:    cred.DisplayName,
				EndDateTime:    cred.EndDateTime,
				DaysRemaining:  int(cred.EndDateTime.Sub(now).Hours() / 24),
				Expired:        cred.EndDateTime.Before(now),
			})
		}
	}

	appendRows(app.PasswordCredentials, "secret")
	appendRows(app.KeyCredentials, "certificate")
	return rows
}

func expiryTable(rows []ExpiryRow) types.MarkdownTable {
	table := types.MarkdownTable{
		TableHeading: "Expiring App Credentials",
		Headers:      []string{"Application", "Type", "Credential", "Ends", "Days Left"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Application,
			row.CredentialType,
			row.DisplayName,
			row.EndDateTime.Format("2006-01-02"),
			strconv.Itoa(row.DaysRemaining),
		})
	}
	return table
}
