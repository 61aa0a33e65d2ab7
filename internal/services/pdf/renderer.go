package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	baseFont     = "Arial"
	baseSize     = 10.0
	lineHeight   = 5.0
	pageWidthMM  = 190.0
	listIndentMM = 5.0
)

// Renderer turns markdown (a converted template preview) into a printable PDF
type Renderer struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

// NewRenderer creates a markdown to PDF renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Renderer{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// MarkdownToPDF renders markdown into PDF bytes. title is stored as document metadata.
func (r *Renderer) MarkdownToPDF(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator("DocSmith", true)
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.AddPage()
	doc.SetFont(baseFont, "", baseSize)

	source := []byte(markdown)
	root := r.md.Parser().Parse(text.NewReader(source))

	w := &pageWriter{doc: doc, source: source, size: baseSize}
	if err := ast.Walk(root, w.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	r.logger.Debug().
		Int("markdown_len", len(markdown)).
		Int("pdf_size", buf.Len()).
		Int("pages", doc.PageCount()).
		Msg("Rendered markdown to PDF")

	return buf.Bytes(), nil
}

// pageWriter walks the markdown AST and writes into the PDF
type pageWriter struct {
	doc    *fpdf.Fpdf
	source []byte
	size   float64
	bold   bool
	italic bool
	depth  int
}

func (w *pageWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(baseFont, style, w.size)
}

func (w *pageWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.doc.Ln(4)
			w.size = headingSize(node.Level)
			w.bold = true
		} else {
			w.size = baseSize
			w.bold = false
			w.doc.Ln(lineHeight + 2)
		}
		w.setFont()

	case *ast.Paragraph:
		if !entering && w.depth == 0 {
			w.doc.Ln(lineHeight + 2)
		}

	case *ast.Text:
		if entering {
			w.doc.Write(lineHeight, string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.doc.Write(lineHeight, " ")
			}
			if node.HardLineBreak() {
				w.doc.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			w.doc.Write(lineHeight, string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level >= 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()

	case *ast.CodeSpan:
		if entering {
			w.doc.SetFont("Courier", "", w.size)
			w.doc.Write(lineHeight, string(node.Text(w.source)))
			w.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			w.depth++
		} else {
			w.depth--
			if w.depth == 0 {
				w.doc.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.doc.Ln(lineHeight)
			w.doc.SetX(10 + float64(w.depth)*listIndentMM)
			w.doc.Write(lineHeight, "- ")
		}

	case *ast.ThematicBreak:
		if entering {
			w.doc.Ln(2)
			y := w.doc.GetY()
			w.doc.Line(10, y, 10+pageWidthMM, y)
			w.doc.Ln(2)
		}

	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 13
	case 3:
		return 11
	}
	return baseSize
}

func (w *pageWriter) codeBlock(lines *text.Segments) {
	w.doc.Ln(1)
	w.doc.SetFont("Courier", "", w.size-1)
	w.doc.SetFillColor(242, 242, 242)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		w.doc.MultiCell(0, lineHeight, strings.TrimRight(string(line.Value(w.source)), "\n"), "", "L", true)
	}
	w.doc.SetFillColor(255, 255, 255)
	w.setFont()
	w.doc.Ln(2)
}

// table renders equal-width columns; the header row is shaded
func (w *pageWriter) table(table *extast.Table) {
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(w.source))))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	colWidth := pageWidthMM / float64(len(rows[0]))
	w.doc.Ln(2)
	for i, cells := range rows {
		if i == 0 {
			w.doc.SetFont(baseFont, "B", baseSize-1)
			w.doc.SetFillColor(225, 225, 225)
		} else {
			w.doc.SetFont(baseFont, "", baseSize-1)
			w.doc.SetFillColor(255, 255, 255)
		}
		for j := range rows[0] {
			value := ""
			if j < len(cells) {
				value = cells[j]
			}
			w.doc.CellFormat(colWidth, lineHeight+2, truncate(w.doc, value, colWidth-2), "1", 0, "L", i == 0, 0, "")
		}
		w.doc.Ln(-1)
	}
	w.doc.SetFillColor(255, 255, 255)
	w.setFont()
	w.doc.Ln(3)
}

// truncate shortens value until it fits width, marking the cut with "..."
func truncate(doc *fpdf.Fpdf, value string, width float64) string {
	if doc.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && doc.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
