// Package viewer holds document viewer state (page and zoom) and loads the
// documents it shows: generated PDFs and template previews.
package viewer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/services/pdf"
	"github.com/ternarybob/docsmith/internal/services/transform"
)

const (
	MinZoom     = 50
	MaxZoom     = 200
	ZoomStep    = 10
	DefaultZoom = 100
)

// State is a snapshot of the viewer
type State struct {
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Page       int    `json:"page" yaml:"page"`
	TotalPages int    `json:"totalPages" yaml:"totalPages"`
	Zoom       int    `json:"zoom" yaml:"zoom"`
}

// Viewer tracks the page and zoom of one open document
type Viewer struct {
	logger    arbor.ILogger
	inspector *pdf.Inspector
	renderer  *pdf.Renderer
	transform *transform.Service

	mu    sync.Mutex
	path  string
	page  int
	total int
	zoom  int
}

// New creates a viewer with nothing loaded. tempDir is used for spooled PDFs.
func New(logger arbor.ILogger, tempDir string) *Viewer {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Viewer{
		logger:    logger,
		inspector: pdf.NewInspector(logger, tempDir),
		renderer:  pdf.NewRenderer(logger),
		transform: transform.NewService(logger),
		zoom:      DefaultZoom,
	}
}

// Load resets the viewer to page 1 of a document with totalPages pages
func (v *Viewer) Load(path string, totalPages int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if totalPages < 0 {
		totalPages = 0
	}
	v.path = path
	v.total = totalPages
	v.page = 0
	if totalPages > 0 {
		v.page = 1
	}
}

// GoToPage moves to page n. Out-of-range pages leave the state unchanged.
func (v *Viewer) GoToPage(n int) bool {
	return v.movePage(func(int) int { return n })
}

// Next moves forward one page if possible
func (v *Viewer) Next() bool {
	return v.movePage(func(page int) int { return page + 1 })
}

// Prev moves back one page if possible
func (v *Viewer) Prev() bool {
	return v.movePage(func(page int) int { return page - 1 })
}

func (v *Viewer) movePage(next func(int) int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := next(v.page)
	if n < 1 || n > v.total {
		return false
	}
	v.page = n
	return true
}

func (v *Viewer) ZoomIn() int {
	return v.setZoom(func(z int) int { return z + ZoomStep })
}

func (v *Viewer) ZoomOut() int {
	return v.setZoom(func(z int) int { return z - ZoomStep })
}

func (v *Viewer) ResetZoom() int {
	return v.setZoom(func(int) int { return DefaultZoom })
}

func (v *Viewer) setZoom(next func(int) int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	zoom := next(v.zoom)
	switch {
	case zoom < MinZoom:
		zoom = MinZoom
	case zoom > MaxZoom:
		zoom = MaxZoom
	}
	v.zoom = zoom
	return zoom
}

// State returns a snapshot
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{Path: v.path, Page: v.page, TotalPages: v.total, Zoom: v.zoom}
}

// OpenPDF loads a PDF from disk, reading its page count
func (v *Viewer) OpenPDF(ctx context.Context, path string) (*pdf.Metadata, error) {
	metadata, err := v.inspector.Inspect(ctx, path)
	if err != nil {
		return nil, err
	}
	v.Load(path, metadata.PageCount)

	v.logger.Debug().Str("path", path).Int("pages", metadata.PageCount).Msg("Document opened")
	return metadata, nil
}

// RenderPreview converts template preview HTML into markdown for the terminal
func (v *Viewer) RenderPreview(html string) (string, error) {
	return v.transform.HTMLToMarkdown(html, "")
}

// ExportPreviewPDF renders preview HTML to a PDF at outPath and opens it
func (v *Viewer) ExportPreviewPDF(ctx context.Context, html, outPath string) (*pdf.Metadata, error) {
	markdown, err := v.RenderPreview(html)
	if err != nil {
		return nil, err
	}

	title := v.transform.Title(html)
	content, err := v.renderer.MarkdownToPDF(markdown, title)
	if err != nil {
		return nil, err
	}

	if outPath == "" {
		outPath, err = v.inspector.WriteTemp(content)
		if err != nil {
			return nil, err
		}
	} else if err := os.WriteFile(outPath, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	return v.OpenPDF(ctx, outPath)
}
