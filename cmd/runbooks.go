package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/helpers"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/registry"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/outputs"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/runbooks"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

const (
	CategoryReport    = "report"
	CategoryRemediate = "remediate"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Read-only reporting runbooks",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Runbooks that change device or user state",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func init() {
	registry.Register(CategoryReport, &runbooks.ComplianceReport{})
	registry.Register(CategoryReport, &runbooks.AppInventory{})
	registry.Register(CategoryReport, &runbooks.CredentialExpiry{})
	registry.Register(CategoryRemediate, &runbooks.DeviceSyncReminders{})
	registry.Register(CategoryRemediate, &runbooks.DeviceCategorize{})
	registry.Register(CategoryRemediate, &runbooks.BulkUserUpdate{})

	for _, name := range registry.GetCategory(CategoryReport) {
		entry, _ := registry.GetRegistryEntry(name)
		reportCmd.AddCommand(newRunbookCommand(entry))
	}
	for _, name := range registry.GetCategory(CategoryRemediate) {
		entry, _ := registry.GetRegistryEntry(name)
		remediateCmd.AddCommand(newRunbookCommand(entry))
	}

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(remediateCmd)
}

func newRunbookCommand(entry registry.RegistryEntry) *cobra.Command {
	rb := entry.Runbook
	meta := rb.Metadata()

	opts := rb.Options()
	common := runbooks.CommonOptions()

	cmd := &cobra.Command{
		Use:   meta.Name,
		Short: meta.Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunbook(cmd, rb, opts, common)
		},
	}
	options2Flag(opts, common, cmd)

	return cmd
}

// runRunbook is the driver shared by every runbook command: resolve
// configuration, authenticate, assemble the environment, run, and surface
// the summary.
func runRunbook(cmd *cobra.Command, rb runbooks.Runbook, opts, common []*types.Option) error {
	meta := rb.Metadata()

	cred, err := helpers.GetAzureCredentials()
	if err != nil {
		message.Critical("%v", err)
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Hydration must precede option resolution so Automation variables are
	// visible as viper defaults.
	if ref, _ := cmd.Flags().GetString("automation-account"); ref != "" {
		if err := helpers.HydrateFromAutomationAccount(ctx, cred, ref); err != nil {
			message.Critical("%v", err)
			return err
		}
	}

	resolveOptions(cmd, opts)
	resolveOptions(cmd, common)

	all := append(append([]*types.Option{globalOutputOption(cmd)}, opts...), common...)
	if err := types.ValidateOptions(all); err != nil {
		message.Error("%v", err)
		return err
	}

	message.Banner()

	env, err := buildEnv(ctx, cmd, cred, all)
	if err != nil {
		message.Critical("%v", err)
		return err
	}

	message.Section("%s", meta.Name)
	if env.DryRun {
		message.Warning("dry-run: no changes will be made")
	}

	started := time.Now()
	stats, err := rb.Run(ctx, env)
	if err != nil {
		message.Critical("run failed: %v", err)
		return err
	}

	summary := stats.Summary()
	message.Summary(meta.Name, summary)

	if path, err := writeStats(meta.Name, summary, env.OptionValue(OutputOpt.Name)); err != nil {
		message.Warning("failed to write run statistics: %v", err)
	} else {
		message.Success("Run statistics written to %s", path)
	}

	slog.Info("run complete",
		"runbook", meta.Name,
		"processed", stats.Processed,
		"errors", stats.Errors,
		"elapsed", time.Since(started))
	return nil
}

// buildEnv assembles the per-run environment: token, resilient Graph
// client, and output providers.
func buildEnv(ctx context.Context, cmd *cobra.Command, cred azcore.TokenCredential, all []*types.Option) (*runbooks.Env, error) {
	tokens := graph.NewTokenProvider(cred)
	token, err := tokens.AcquireToken(ctx, graph.GraphAudience)
	if err != nil {
		return nil, err
	}

	env := &runbooks.Env{
		Credential: cred,
		Tokens:     tokens,
		Options:    all,
		Logger:     slog.Default(),
	}
	env.DryRun, _ = cmd.Flags().GetBool("dry-run")

	env.Graph = graph.NewClient(token,
		graph.WithRetryPolicy(env.RetryPolicy()),
		graph.WithLogger(env.Logger))

	format := env.OptionValue(runbooks.FormatOpt.Name)
	if format == "" {
		format = runbooks.FormatOpt.Default
	}
	env.Providers, err = outputs.FromFormats(format, all)
	if err != nil {
		return nil, err
	}

	return env, nil
}

func globalOutputOption(cmd *cobra.Command) *types.Option {
	output := OutputOpt
	if cmd.Flags().Changed(output.Name) {
		output.Value, _ = cmd.Flags().GetString(output.Name)
	} else if viper.IsSet(output.Name) {
		output.Value = viper.GetString(output.Name)
	}
	return &output
}

// writeStats persists the flattened summary next to the reports.
func writeStats(name string, summary map[string]any, outputPath string) (string, error) {
	fullpath := filepath.Join(outputPath, name+"-stats.json")
	if err := os.MkdirAll(outputPath, os.ModePerm); err != nil {
		return "", err
	}

	file, err := os.Create(fullpath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return "", err
	}
	return fullpath, nil
}
