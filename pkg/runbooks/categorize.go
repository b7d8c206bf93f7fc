package runbooks

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/intune"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// DeviceCategorize aligns each device's Intune category with its primary
// user's department, driven by a department-to-category rules file.
type DeviceCategorize struct{}

var RulesOpt = types.Option{
	Name:        "rules",
	Description: "YAML file mapping departments to device category names",
	Required:    true,
	Type:        types.String,
}

func (r *DeviceCategorize) Metadata() Metadata {
	return Metadata{
		Name:        "device-categorize",
		Description: "Set each device's category from its primary user's department",
		Mutating:    true,
		References: []string{
			"https://learn.microsoft.com/en-us/graph/api/intune-devices-manageddevice-update",
		},
	}
}

func (r *DeviceCategorize) Options() []*types.Option {
	return CloneOptions(&RulesOpt, &OSOpt)
}

func (r *DeviceCategorize) Run(ctx context.Context, env *Env) (*batch.RunStatistics, error) {
	rules, err := LoadCategoryRules(env.OptionValue(RulesOpt.Name))
	if err != nil {
		return nil, err
	}

	devices, err := intune.ListManagedDevices(ctx, env.Graph, intune.DeviceFilter{
		OS: env.OptionValue(OSOpt.Name),
	})
	if err != nil {
		return nil, err
	}

	categories, err := intune.ListDeviceCategories(ctx, env.Graph)
	if err != nil {
		return nil, err
	}
	categoryIDs := make(map[string]string, len(categories))
	for _, category := range categories {
		categoryIDs[category.DisplayName] = category.ID
	}

	env.Logger.Info("categorizing devices",
		"devices", len(devices),
		"rules", len(rules),
		"categories", len(categories))

	// Users repeat across devices; cache lookups for the run.
	users := map[string]*types.User{}

	size, delay := env.BatchSettings()
	processor := batch.NewProcessor[types.ManagedDevice](size, delay)
	processor.Logger = env.Logger

	return processor.Run(ctx, devices, func(ctx context.Context, device types.ManagedDevice, stats *batch.RunStatistics) error {
		if device.UserID == "" {
			stats.MarkSkipped("no_primary_user")
			return nil
		}

		user, ok := users[device.UserID]
		if !ok {
			var err error
			user, err = intune.GetUser(ctx, env.Graph, device.UserID)
			if err != nil {
				return fmt.Errorf("failed to resolve primary user of %s: %w", device.DeviceName, err)
			}
			users[device.UserID] = user
		}

		if user.Department == "" {
			stats.MarkSkipped("no_department")
			return nil
		}

		target, ok := rules[user.Department]
		if !ok {
			stats.MarkSkipped("unmapped_department")
			return nil
		}

		if device.DeviceCategoryDisplayName == target {
			stats.MarkSkipped("already_categorized")
			return nil
		}

		categoryID, ok := categoryIDs[target]
		if !ok {
			return fmt.Errorf("category %q mapped from department %q does not exist in the tenant", target, user.Department)
		}

		if env.DryRun {
			env.Logger.Info("dry-run: would assign device category",
				"device", device.DeviceName,
				"from", device.DeviceCategoryDisplayName,
				"to", target)
			stats.Succeeded++
			stats.IncrementCategory("category_" + osKey(target))
			return nil
		}

		if err := intune.AssignDeviceCategory(ctx, env.Graph, device.ID, categoryID); err != nil {
			return fmt.Errorf("failed to categorize device %s: %w", device.DeviceName, err)
		}

		stats.Succeeded++
		stats.IncrementCategory("category_" + osKey(target))
		return nil
	})
}

// LoadCategoryRules reads the department-to-category mapping. yaml.v3
// rejects duplicate mapping keys, so a rules file that lists a department
// twice fails here rather than silently taking the last entry.
func LoadCategoryRules(path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("a rules file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules map[string]string
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules file %s maps no departments", path)
	}

	return rules, nil
}
