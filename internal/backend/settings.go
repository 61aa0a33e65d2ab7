package backend

import (
	"context"

	"github.com/ternarybob/docsmith/internal/models"
)

// GetSettings returns the backend settings document
func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := c.get(ctx, "/api/settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings replaces the backend settings document
func (c *Client) SaveSettings(ctx context.Context, settings *models.Settings) error {
	return c.post(ctx, "/api/settings", settings, nil)
}

// DiscoverAnythingLLM asks the backend to probe for a local AnythingLLM instance
func (c *Client) DiscoverAnythingLLM(ctx context.Context) (*models.DiscoveryResult, error) {
	var result models.DiscoveryResult
	if err := c.post(ctx, "/api/settings/discover-anythingllm", struct{}{}, &result); err != nil {
		return nil, err
	}
	if result.URL != "" {
		result.Found = true
	}
	return &result, nil
}
