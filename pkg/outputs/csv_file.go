package outputs

import (
	"encoding/csv"
	"log/slog"
	"os"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

type CsvFileProvider struct {
	OutputPath string
}

func NewCsvFileProvider(opts []*types.Option) types.OutputProvider {
	return &CsvFileProvider{
		OutputPath: outputDir(opts),
	}
}

// Write renders a tabular result as CSV. Non-table payloads are skipped the
// same way the JSON provider skips tables.
func (fp *CsvFileProvider) Write(result types.Result) error {
	table, ok := result.Data.(types.MarkdownTable)
	if !ok {
		slog.Debug("CSV provider is skipping non-table output")
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

	file, err := os.Create(fullpath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Headers); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	message.Success("Output written to %s", fullpath)
	return nil
}

func (fp *CsvFileProvider) DefaultFileName(prefix string) string {
	return DefaultFileName(prefix, "csv")
}
