package models

import "time"

// TemplateItem describes a document template known to the backend.
// Purely descriptive; fetched wholesale on each load.
type TemplateItem struct {
	Slug          string     `json:"slug" yaml:"slug"`
	Name          string     `json:"name" yaml:"name"`
	HasDocx       bool       `json:"hasDocx" yaml:"hasDocx"`
	HasExcel      bool       `json:"hasExcel" yaml:"hasExcel"`
	HasFullGen    bool       `json:"hasFullGen" yaml:"hasFullGen"`
	WorkspaceSlug string     `json:"workspaceSlug,omitempty" yaml:"workspaceSlug,omitempty"`
	CompiledAt    *time.Time `json:"compiledAt,omitempty" yaml:"compiledAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Kind returns a short label for the source document types present
func (t TemplateItem) Kind() string {
	switch {
	case t.HasDocx && t.HasExcel:
		return "docx+xlsx"
	case t.HasDocx:
		return "docx"
	case t.HasExcel:
		return "xlsx"
	}
	return "-"
}

// UploadResult is returned by the template upload endpoint
type UploadResult struct {
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// CompileStatus is the last known compile state of a template
type CompileStatus struct {
	Slug       string     `json:"slug" yaml:"slug"`
	Compiled   bool       `json:"compiled" yaml:"compiled"`
	HasFullGen bool       `json:"hasFullGen" yaml:"hasFullGen"`
	CompiledAt *time.Time `json:"compiledAt,omitempty" yaml:"compiledAt,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}
