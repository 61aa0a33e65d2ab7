package models

import "time"

// Workspace is a proxy for an external AnythingLLM workspace
type Workspace struct {
	ID        int       `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Slug      string    `json:"slug" yaml:"slug"`
	Threads   []Thread  `json:"threads,omitempty" yaml:"threads,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// Thread is a chat thread inside a workspace
type Thread struct {
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

// PingResult reports reachability of the AnythingLLM service
type PingResult struct {
	Online  bool   `json:"online" yaml:"online"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// AuthResult reports whether the configured key is accepted by AnythingLLM
type AuthResult struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
}
