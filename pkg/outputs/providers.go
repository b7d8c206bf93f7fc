package outputs

import (
	"fmt"
	"strings"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

var factories = map[string]func([]*types.Option) types.OutputProvider{
	"console": NewConsoleProvider,
	"json":    NewJsonFileProvider,
	"csv":     NewCsvFileProvider,
	"md":      NewMarkdownFileProvider,
}

// FromFormats builds the provider chain for a comma-separated format list.
func FromFormats(formats string, opts []*types.Option) ([]types.OutputProvider, error) {
	var providers []types.OutputProvider

	for _, format := range strings.Split(formats, ",") {
		format = strings.TrimSpace(strings.ToLower(format))
		if format == "" {
			continue
		}

		factory, ok := factories[format]
		if !ok {
			return nil, fmt.Errorf("unknown output format %q", format)
		}
		providers = append(providers, factory(opts))
	}

	if len(providers) == 0 {
		providers = append(providers, NewConsoleProvider(opts))
	}

	return providers, nil
}
