package runbooks

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// BulkUserUpdate patches user attributes from a CSV file. The header row
// names a userPrincipalName column plus the attributes to set; the whole
// file is validated before the first PATCH goes out.
type BulkUserUpdate struct{}

var InputOpt = types.Option{
	Name:        "input",
	Description: "CSV file with a userPrincipalName column and attribute columns",
	Required:    true,
	Type:        types.String,
}

const upnColumn = "userPrincipalName"

// updatableAttributes are the user properties the bulk update is allowed to
// touch. Anything else in the header fails the run before any PATCH.
var updatableAttributes = map[string]bool{
	"displayName":    true,
	"department":     true,
	"jobTitle":       true,
	"companyName":    true,
	"officeLocation": true,
	"usageLocation":  true,
	"mobilePhone":    true,
	"city":           true,
	"state":          true,
	"country":        true,
	"postalCode":     true,
	"streetAddress":  true,
	"employeeId":     true,
}

// UserUpdateRow is one parsed CSV row.
type UserUpdateRow struct {
	UPN        string
	Attributes map[string]any
}

func (r *BulkUserUpdate) Metadata() Metadata {
	return Metadata{
		Name:        "bulk-user-update",
		Description: "Patch user attributes in bulk from a CSV file",
		Mutating:    true,
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/user-update",
		},
	}
}

func (r *BulkUserUpdate) Options() []*types.Option {
	return CloneOptions(&InputOpt)
}

func (r *BulkUserUpdate) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	rows, err := LoadUserUpdates(env.OptionValue(InputOpt.Name))
	if err != nil {
		return nil, err
	}

	env.Logger.Info("loaded user updates", "rows", len(rows))

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[UserUpdateRow](size, delay)
	processor.Logger = env.Logger

	return processor.Run(ctx, rows, func(ctx context.Context, row UserUpdateRow, stats *batch.RunStatistics) error {
		if row.UPN == "" {
			stats.MarkSkipped("empty_upn")
			return nil
		}
		if len(row.Attributes) == 0 {
			stats.MarkSkipped("no_changes")
			return nil
		}

		if env.DryRun {
			env.Logger.Info("dry-run: would update user",
				"user", row.UPN,
				"attributes", len(row.Attributes))
			stats.Succeeded++
			return nil
		}

		user, err := intune.GetUser(ctx, env.Graph, row.UPN)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", row.UPN, err)
		}

		if err := intune.UpdateUser(ctx, env.Graph, user.ID, row.Attributes); err != nil {
			return fmt.Errorf("failed to update %s: %w", row.UPN, err)
		}

		stats.Succeeded++
		return nil
	})
}

// LoadUserUpdates parses and validates the CSV input. The header must carry
// userPrincipalName and only known attribute columns. Rows with an empty
// UPN are kept so the run summary accounts for every input line; the action
// skips them without calling Graph.
func LoadUserUpdates(path string) ([]UserUpdateRow, error) {
	if path == "" {
		return nil, fmt.Errorf("an input file is required")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	upnIndex := -1
	for i, column := range header {
		column = strings.TrimSpace(column)
		header[i] = column
		if strings.EqualFold(column, upnColumn) {
			upnIndex = i
			continue
		}
		if !updatableAttributes[column] {
			return nil, fmt.Errorf("unknown column %q in %s", column, path)
		}
	}
	if upnIndex < 0 {
		return nil, fmt.Errorf("input file %s has no %s column", path, upnColumn)
	}

	var rows []UserUpdateRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		upn := strings.TrimSpace(record[upnIndex])
		attributes := map[string]any{}
		for i, value := range record {
			if i == upnIndex {
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				attributes[header[i]] = value
			}
		}

		rows = append(rows, UserUpdateRow{UPN: upn, Attributes: attributes})
	}

	return rows, nil
}
