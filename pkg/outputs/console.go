package outputs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

type ConsoleProvider struct {
	out io.Writer
}

func NewConsoleProvider(opts []*types.Option) types.OutputProvider {
	return &ConsoleProvider{out: os.Stdout}
}

// NewWriterProvider writes to the given writer instead of stdout. Used by
// the MCP server to capture a runbook's report output.
func NewWriterProvider(w io.Writer) types.OutputProvider {
	return &ConsoleProvider{out: w}
}

// Write renders a markdown table directly and everything else as indented
// JSON.
func (cp *ConsoleProvider) Write(result types.Result) error {
	if table, ok := result.Data.(types.MarkdownTable); ok {
		fmt.Fprintln(cp.out, table.ToString())
		return nil
	}

	encoder := json.NewEncoder(cp.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result.Data)
}
