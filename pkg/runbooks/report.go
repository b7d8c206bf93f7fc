package runbooks

import (
	"strings"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/outputs"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// emitReport sends a report's table to the table-shaped providers and its
// rows to the data-shaped ones, applying the shared jq filter to the rows
// first. filename names the rows file so callers that upload it afterwards
// know the path; empty lets the provider pick.
func emitReport(env *Env, name string, rows any, table types.MarkdownTable, filename string) error {
	if expression := env.OptionValue(FilterOpt.Name); expression != "" {
		filtered, err := outputs.ApplyFilter(rows, expression)
		if err != nil {
			return err
		}
		rows = filtered
	}

	if err := env.Emit(types.NewResult(name, table)); err != nil {
		return err
	}

	opts := []types.ResultOption{}
	if filename != "" {
		opts = append(opts, types.WithFilename(filename))
	}
	return env.Emit(types.NewResult(name, rows, opts...))
}

// formatEnabled reports whether the named format is in the run's resolved
// format list. Steps that consume a provider's file, like the blob upload,
// check this before assuming the file exists.
func formatEnabled(env *Env, format string) bool {
	value := env.OptionValue(FormatOpt.Name)
	if value == "" {
		value = FormatOpt.Default
	}
	for _, f := range strings.Split(value, ",") {
		if strings.TrimSpace(strings.ToLower(f)) == format {
			return true
		}
	}
	return false
}
