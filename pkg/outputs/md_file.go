package outputs

import (
	"log/slog"
	"os"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

type MarkdownFileProvider struct {
	OutputPath string
}

func NewMarkdownFileProvider(opts []*types.Option) types.OutputProvider {
	return &MarkdownFileProvider{
		OutputPath: outputDir(opts),
	}
}

func (fp *MarkdownFileProvider) Write(result types.Result) error {
	// Result.Data needs to be of type MarkdownTable for this provider to work
	table, ok := result.Data.(types.MarkdownTable)
	if !ok {
		slog.Debug("markdown provider is skipping non-table output")
		return nil
	}

	filename := result.Filename
	if filename == "" {
		filename = fp.DefaultFileName(result.Runbook)
	}
	fullpath := GetFullPath(filename, fp.OutputPath)

	if err := ensureDir(fullpath); err != nil {
		return err
	}

	file, err := os.OpenFile(fullpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteString(table.ToString() + "\n"); err != nil {
		return err
	}

	message.Success("Output written to %s", fullpath)
	return nil
}

func (fp *MarkdownFileProvider) DefaultFileName(prefix string) string {
	return DefaultFileName(prefix, "md")
}
