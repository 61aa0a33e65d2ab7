package models

import (
	"encoding/json"
	"time"
)

// Settings is the backend settings document. Unknown keys are preserved in Extra
// so a round trip through the client never drops server-side fields.
type Settings struct {
	AnythingLLMURL   string         `json:"anythingLLMUrl,omitempty" yaml:"anythingLLMUrl,omitempty"`
	AnythingLLMKey   string         `json:"anythingLLMKey,omitempty" yaml:"anythingLLMKey,omitempty"`
	OutputDir        string         `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	DefaultWorkspace string         `json:"defaultWorkspace,omitempty" yaml:"defaultWorkspace,omitempty"`
	Extra            map[string]any `json:"-" yaml:"extra,omitempty"`
}

var settingsKnownKeys = map[string]bool{
	"anythingLLMUrl":   true,
	"anythingLLMKey":   true,
	"outputDir":        true,
	"defaultWorkspace": true,
}

type settingsAlias Settings

// UnmarshalJSON keeps unknown keys in Extra
func (s *Settings) UnmarshalJSON(data []byte) error {
	var alias settingsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Settings(alias)
	for key, value := range raw {
		if settingsKnownKeys[key] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = value
	}
	return nil
}

// MarshalJSON writes Extra keys back next to the known fields
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4)
	for key, value := range s.Extra {
		out[key] = value
	}
	if s.AnythingLLMURL != "" {
		out["anythingLLMUrl"] = s.AnythingLLMURL
	}
	if s.AnythingLLMKey != "" {
		out["anythingLLMKey"] = s.AnythingLLMKey
	}
	if s.OutputDir != "" {
		out["outputDir"] = s.OutputDir
	}
	if s.DefaultWorkspace != "" {
		out["defaultWorkspace"] = s.DefaultWorkspace
	}
	return json.Marshal(out)
}

// DiscoveryResult is returned by the AnythingLLM discovery endpoint
type DiscoveryResult struct {
	Found bool   `json:"found" yaml:"found"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// SetupStatus mirrors the "setup-completed" flag the desktop host persists
type SetupStatus struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
