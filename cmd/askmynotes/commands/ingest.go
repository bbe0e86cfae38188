package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ingestFiles loads each path into the subject's local tenant and returns
// the concatenated extracted text for summarising.
func ingestFiles(ctx context.Context, appCtx *AppContext, subject string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no files given")
	}
	tenant := localTenant(subject)
	var text strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		name := filepath.Base(path)
		res, err := appCtx.Service.Ingest(ctx, tenant, uuid.NewString(), bytes.NewReader(data), name)
		if err != nil {
			return "", fmt.Errorf("ingest %s: %w", name, err)
		}
		appCtx.Logger.Info("note ingested", "file", name, "chunks", res.ChunkCount)

		doc, err := appCtx.Parser.Parse(ctx, bytes.NewReader(data), name)
		if err != nil {
			continue
		}
		for _, p := range doc.Pages {
			text.WriteString(p.Text)
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}
