package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ternarybob/docsmith/internal/models"
)

// PingAnythingLLM checks whether the AnythingLLM service is reachable
func (c *Client) PingAnythingLLM(ctx context.Context) (*models.PingResult, error) {
	var result struct {
		models.PingResult
		OK *bool `json:"ok"`
	}
	if err := c.get(ctx, "/api/anythingllm/ping", &result); err != nil {
		return nil, err
	}
	if result.OK != nil && *result.OK {
		result.Online = true
	}
	return &result.PingResult, nil
}

// AuthAnythingLLM verifies an API key. An empty key checks the saved one.
func (c *Client) AuthAnythingLLM(ctx context.Context, apiKey string) (*models.AuthResult, error) {
	body := map[string]string{}
	if apiKey != "" {
		body["apiKey"] = apiKey
	}

	var result models.AuthResult
	if err := c.post(ctx, "/api/anythingllm/auth", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListWorkspaces returns AnythingLLM workspaces
func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	if err := c.getList(ctx, "/api/anythingllm/workspaces", "workspaces", &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// GetWorkspace returns a workspace including its threads
func (c *Client) GetWorkspace(ctx context.Context, slug string) (*models.Workspace, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/anythingllm/workspaces/"+url.PathEscape(slug), &raw); err != nil {
		return nil, err
	}
	return decodeWorkspace(raw)
}

// CreateWorkspace creates a workspace with the given name
func (c *Client) CreateWorkspace(ctx context.Context, name string) (*models.Workspace, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "/api/anythingllm/workspaces", map[string]string{"name": name}, &raw); err != nil {
		return nil, err
	}
	return decodeWorkspace(raw)
}

// decodeWorkspace accepts both {"workspace":{...}} and a bare workspace object.
// AnythingLLM wraps single workspaces; the proxy may or may not unwrap them.
func decodeWorkspace(raw json.RawMessage) (*models.Workspace, error) {
	var envelope struct {
		Workspace json.RawMessage `json:"workspace"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}

	body := raw
	if len(envelope.Workspace) > 0 && string(envelope.Workspace) != "null" {
		body = envelope.Workspace
	}

	var workspace models.Workspace
	if err := json.Unmarshal(body, &workspace); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}
	return &workspace, nil
}

// DeleteWorkspace removes a workspace
func (c *Client) DeleteWorkspace(ctx context.Context, slug string) error {
	return c.delete(ctx, "/api/anythingllm/workspaces/"+url.PathEscape(slug))
}
