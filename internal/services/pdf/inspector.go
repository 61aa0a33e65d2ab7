// -----------------------------------------------------------------------
// PDF Inspector - page count and basic metadata for generated documents
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
)

// TempPattern names temp files so the host's cleanup job can find them
const TempPattern = "docsmith-pdf-*.pdf"

// Metadata describes an opened PDF
type Metadata struct {
	Path        string `json:"path" yaml:"path"`
	PageCount   int    `json:"pageCount" yaml:"pageCount"`
	FileSize    int64  `json:"fileSize" yaml:"fileSize"`
	IsEncrypted bool   `json:"encrypted" yaml:"encrypted"`
}

// Inspector reads PDF structure without rendering it
type Inspector struct {
	logger  arbor.ILogger
	tempDir string
}

// NewInspector creates an inspector. tempDir empty means os.TempDir().
func NewInspector(logger arbor.ILogger, tempDir string) *Inspector {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Inspector{
		logger:  logger,
		tempDir: tempDir,
	}
}

// Inspect reads metadata from a PDF file on disk
func (i *Inspector) Inspect(ctx context.Context, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	metadata := &Metadata{
		Path:        path,
		PageCount:   pdfCtx.PageCount,
		FileSize:    info.Size(),
		IsEncrypted: pdfCtx.Encrypt != nil,
	}

	i.logger.Debug().
		Str("path", path).
		Int("page_count", metadata.PageCount).
		Int64("file_size", metadata.FileSize).
		Bool("encrypted", metadata.IsEncrypted).
		Msg("Read PDF metadata")

	return metadata, nil
}

// InspectBytes spools content to a temp file and inspects it.
// The temp file is removed before returning.
func (i *Inspector) InspectBytes(ctx context.Context, content []byte) (*Metadata, error) {
	path, err := i.WriteTemp(content)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	metadata, err := i.Inspect(ctx, path)
	if err != nil {
		return nil, err
	}
	metadata.Path = ""
	return metadata, nil
}

// WriteTemp writes content to a docsmith-pdf-*.pdf temp file and returns its path
func (i *Inspector) WriteTemp(content []byte) (string, error) {
	file, err := os.CreateTemp(i.tempDir, TempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp PDF file: %w", err)
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to close temp PDF file: %w", err)
	}

	return file.Name(), nil
}
