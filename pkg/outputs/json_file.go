package outputs

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/internal/message"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

type JsonFileProvider struct {
	OutputPath string
}

func NewJsonFileProvider(opts []*types.Option) types.OutputProvider {
	return &JsonFileProvider{
		OutputPath: outputDir(opts),
	}
}

func (fp *JsonFileProvider) Write(result types.Result) error {
	if _, ok := result.Data.(types.MarkdownTable); ok {
		// Tables belong to the console and markdown providers
		slog.Debug("JSON provider is skipping markdown table output")
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

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Data); err != nil {
		return err
	}

	message.Success("Output written to %s", fullpath)
	return nil
}

func (fp *JsonFileProvider) DefaultFileName(prefix string) string {
	return DefaultFileName(prefix, "json")
}

// outputDir resolves the shared output option, falling back to the working
// directory.
func outputDir(opts []*types.Option) string {
	if opt := types.GetOptionByName("output", opts); opt != nil && opt.Value != "" {
		return opt.Value
	}
	return "."
}
