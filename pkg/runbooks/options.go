package runbooks

import "github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"

// Options shared by every runbook. Durations are whole seconds, matching the
// knobs the scheduled jobs have always been configured with.
var (
	MaxRetriesOpt = types.Option{
		Name:        "max-retries",
		Description: "Maximum retries for throttled or failed Graph requests",
		Default:     "5",
		Value:       "5",
		Type:        types.Int,
	}

	InitialBackoffOpt = types.Option{
		Name:        "initial-backoff",
		Description: "Initial retry backoff in seconds, doubled after every retry",
		Default:     "5",
		Value:       "5",
		Type:        types.Int,
	}

	BatchSizeOpt = types.Option{
		Name:        "batch-size",
		Description: "Items processed per batch",
		Default:     "50",
		Value:       "50",
		Type:        types.Int,
	}

	BatchDelayOpt = types.Option{
		Name:        "batch-delay",
		Description: "Seconds to pause between batches",
		Default:     "10",
		Value:       "10",
		Type:        types.Int,
	}

	FilterOpt = types.Option{
		Name:        "filter",
		Description: "jq expression applied to report rows before they are written",
		Type:        types.String,
	}

	FormatOpt = types.Option{
		Name:        "format",
		Description: "Comma-separated output formats: console, json, csv, md",
		Default:     "console,json",
		Value:       "console,json",
		Type:        types.String,
	}
)

// CommonOptions returns fresh copies of the shared options so each command
// resolves its own values.
func CommonOptions() []*types.Option {
	return CloneOptions(&MaxRetriesOpt, &InitialBackoffOpt, &BatchSizeOpt, &BatchDelayOpt, &FilterOpt, &FormatOpt)
}

// CloneOptions copies option templates into per-run instances.
func CloneOptions(opts ...*types.Option) []*types.Option {
	out := make([]*types.Option, 0, len(opts))
	for _, opt := range opts {
		clone := *opt
		out = append(out, &clone)
	}
	return out
}
