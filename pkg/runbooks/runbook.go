package runbooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/batch"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// Metadata describes a runbook for the CLI listing and the MCP surface.
type Metadata struct {
	Name        string
	Description string
	Mutating    bool
	References  []string
}

// Runbook is one scheduled job: collect a working set from Graph, walk it in
// batches, act per item, and account for every item in the run statistics.
type Runbook interface {
	Metadata() Metadata
	Options() []*types.Option
	Run(ctx context.Context, env *Env) (*batch.RunStatistics, error)
}

// Env is the per-run environment the CLI assembles before invoking a
// runbook: an authenticated Graph client, the token provider for any
// additional audiences, configured output providers, and the resolved
// options.
type Env struct {
	Credential azcore.TokenCredential
	Tokens     *graph.TokenProvider
	Graph      *graph.Client
	Providers  []types.OutputProvider
	Options    []*types.Option
	Logger     *slog.Logger
	DryRun     bool
}

// Option returns the named option from the resolved set, or nil.
func (e *Env) Option(name string) *types.Option {
	return types.GetOptionByName(name, e.Options)
}

// OptionValue returns the named option's value, or the empty string.
func (e *Env) OptionValue(name string) string {
	if opt := e.Option(name); opt != nil {
		return opt.Value
	}
	return ""
}

// OptionInt returns the named option's value as an int, or fallback.
func (e *Env) OptionInt(name string, fallback int) int {
	if opt := e.Option(name); opt != nil && opt.Value != "" {
		return opt.IntValue()
	}
	return fallback
}

// OptionBool returns the named option's value as a bool.
func (e *Env) OptionBool(name string) bool {
	if opt := e.Option(name); opt != nil {
		return opt.BoolValue()
	}
	return false
}

// RetryPolicy builds the run's retry policy from the shared options.
func (e *Env) RetryPolicy() graph.RetryPolicy {
	return graph.RetryPolicy{
		MaxRetries:     e.OptionInt(MaxRetriesOpt.Name, graph.DefaultMaxRetries),
		InitialBackoff: time.Duration(e.OptionInt(InitialBackoffOpt.Name, 5)) * time.Second,
	}
}

// BatchSettings returns the run's batch size and inter-batch delay from the
// shared options.
func (e *Env) BatchSettings() (int, time.Duration) {
	size := e.OptionInt(BatchSizeOpt.Name, batch.DefaultBatchSize)
	delay := time.Duration(e.OptionInt(BatchDelayOpt.Name, 10)) * time.Second
	return size, delay
}

// Emit hands a result to every configured provider in order. Provider
// failures abort the run; a report that cannot be written is a failed job.
func (e *Env) Emit(result types.Result) error {
	for _, provider := range e.Providers {
		if err := provider.Write(result); err != nil {
			return err
		}
	}
	return nil
}
