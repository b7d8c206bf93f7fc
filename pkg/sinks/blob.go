package sinks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// UploadReport streams a finished report file into a storage container,
// named by its base filename. Dry-run logs the intended upload instead.
func UploadReport(ctx context.Context, cred azcore.TokenCredential, accountURL, containerName, path string, dryRun bool) error {
	blobName := filepath.Base(path)

	if dryRun {
		slog.Info("dry-run: would upload report",
			"account", accountURL,
			"container", containerName,
			"blob", blobName)
		return nil
	}

	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return fmt.Errorf("failed to create blob client: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	if _, err := client.UploadStream(ctx, containerName, blobName, file, nil); err != nil {
		return fmt.Errorf("failed to upload report %s: %w", blobName, err)
	}

	slog.Info("report uploaded", "container", containerName, "blob", blobName)
	return nil
}
