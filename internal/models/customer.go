package models

import "time"

// Customer groups uploaded documents and generation jobs
type Customer struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	WorkspaceSlug string    `json:"workspaceSlug,omitempty" yaml:"workspaceSlug,omitempty"`
	DocumentCount int       `json:"documentCount,omitempty" yaml:"documentCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}
