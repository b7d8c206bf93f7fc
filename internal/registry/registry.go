package registry

import (
	"sort"
	"sync"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/runbooks"
)

type RegistryEntry struct {
	Runbook  runbooks.Runbook
	Category string
}

type RunbookRegistry struct {
	mu        sync.RWMutex
	runbooks  map[string]RegistryEntry // name -> runbook mapping
	hierarchy map[string][]string      // category -> []name
}

var Registry = &RunbookRegistry{
	runbooks:  make(map[string]RegistryEntry),
	hierarchy: make(map[string][]string),
}

func Register(category string, rb runbooks.Runbook) {
	Registry.mu.Lock()
	defer Registry.mu.Unlock()

	name := rb.Metadata().Name
	Registry.runbooks[name] = RegistryEntry{
		Runbook:  rb,
		Category: category,
	}

	Registry.hierarchy[category] = append(Registry.hierarchy[category], name)
}

// GetRunbook gets a specific runbook by name
func GetRunbook(name string) (runbooks.Runbook, bool) {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()

	entry, exists := Registry.runbooks[name]
	if !exists {
		return nil, false
	}

	return entry.Runbook, true
}

// GetRegistryEntry gets the full entry for a runbook
func GetRegistryEntry(name string) (RegistryEntry, bool) {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()

	entry, exists := Registry.runbooks[name]
	return entry, exists
}

// GetHierarchy exposes the category tree for CLI generation, names sorted
// within each category. Returns a copy to prevent modification of the
// original.
func GetHierarchy() map[string][]string {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()

	result := make(map[string][]string)
	for category, names := range Registry.hierarchy {
		sorted := append([]string{}, names...)
		sort.Strings(sorted)
		result[category] = sorted
	}

	return result
}

// GetCategory returns the sorted runbook names registered under a category.
func GetCategory(category string) []string {
	return GetHierarchy()[category]
}
