package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/helpers"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/registry"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/outputs"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/runbooks"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/version"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Expose the report runbooks as MCP tools over stdio",
	Long: `Expose the report runbooks as MCP tools over stdio. Only read-only
runbooks are published; remediation stays behind the CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		mcpServer()
	},
}

func mcpServer() {
	s := server.NewMCPServer(
		"intunectl",
		version.FullVersion(),
		server.WithLogging(),
	)

	for _, name := range mcpToolNames() {
		entry, _ := registry.GetRegistryEntry(name)
		s.AddTool(runbookToToolAdapter(entry.Runbook), runbookHandler)
	}

	// Start the stdio server
	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}

// mcpToolNames lists the runbooks published over MCP: exactly the report
// category.
func mcpToolNames() []string {
	return registry.GetCategory(CategoryReport)
}

func runbookHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, ok := registry.GetRegistryEntry(request.Params.Name)
	if !ok {
		return nil, fmt.Errorf("runbook not found")
	}
	rb := entry.Runbook

	opts := rb.Options()
	common := runbooks.CommonOptions()
	all := append(opts, common...)
	applyToolArguments(request, all)

	if err := types.ValidateOptions(all); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cred, err := helpers.GetAzureCredentials()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tokens := graph.NewTokenProvider(cred)
	token, err := tokens.AcquireToken(ctx, graph.GraphAudience)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	w := &bytes.Buffer{}
	env := &runbooks.Env{
		Credential: cred,
		Tokens:     tokens,
		Graph:      graph.NewClient(token, graph.WithLogger(slog.Default())),
		Providers:  []types.OutputProvider{outputs.NewWriterProvider(w)},
		Options:    all,
		Logger:     slog.Default(),
		DryRun:     true, // tools never mutate, and their sinks stay quiet
	}

	stats, err := rb.Run(ctx, env)
	if err != nil {
		slog.Error("runbook failed", "runbook", request.Params.Name, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	fmt.Fprintf(w, "\nRun statistics: %v\n", stats.Summary())
	return mcp.NewToolResultText(w.String()), nil
}

func runbookToToolAdapter(rb runbooks.Runbook) mcp.Tool {
	meta := rb.Metadata()

	description := fmt.Sprintf("%s\n\nReferences:\n%s\nName: %s",
		meta.Description,
		"- "+strings.Join(meta.References, "\n- "),
		meta.Name,
	)

	toolOpts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			Title:         meta.Name,
			OpenWorldHint: mcp.ToBoolPtr(true),
		}),
	}

	for _, option := range append(rb.Options(), runbooks.CommonOptions()...) {
		switch option.Type {
		case types.Bool:
			toolOpts = append(toolOpts, mcp.WithBoolean(option.Name,
				mcp.Description(option.Description),
				optionRequirement(option),
			))
		case types.Int:
			toolOpts = append(toolOpts, mcp.WithNumber(option.Name,
				mcp.Description(option.Description),
				optionRequirement(option),
			))
		default:
			toolOpts = append(toolOpts, mcp.WithString(option.Name,
				mcp.Description(option.Description),
				optionRequirement(option),
			))
		}
	}

	return mcp.NewTool(meta.Name, toolOpts...)
}

func optionRequirement(option *types.Option) mcp.PropertyOption {
	if option.Required {
		return mcp.Required()
	}

	return func(schema map[string]interface{}) {
		schema["required"] = false
	}
}

func applyToolArguments(request mcp.CallToolRequest, options []*types.Option) {
	args := request.GetArguments()
	for _, option := range options {
		arg := args[option.Name]
		if arg == nil {
			continue
		}

		switch v := arg.(type) {
		case string:
			option.Value = v
		case bool:
			option.Value = strconv.FormatBool(v)
		case float64:
			option.Value = strconv.Itoa(int(v))
		default:
			option.Value = fmt.Sprintf("%v", v)
		}
	}
}
