package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ternarybob/docsmith/internal/models"
)

func templatePath(slug string, suffix string) string {
	return "/api/templates/" + url.PathEscape(slug) + suffix
}

// ListTemplates returns every template known to the backend
func (c *Client) ListTemplates(ctx context.Context) ([]models.TemplateItem, error) {
	var templates []models.TemplateItem
	if err := c.getList(ctx, "/api/templates", "templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// UploadTemplate uploads a .docx/.xlsx template. name and slug are optional.
func (c *Client) UploadTemplate(ctx context.Context, filePath, name, slug string) (*models.UploadResult, error) {
	var result models.UploadResult
	fields := map[string]string{"name": name, "slug": slug}
	if err := c.postMultipart(ctx, "/api/templates/upload", filePath, fields, &result); err != nil {
		return nil, err
	}
	if result.Slug == "" {
		return nil, fmt.Errorf("upload response did not include a slug")
	}
	return &result, nil
}

// DeleteTemplate removes a template
func (c *Client) DeleteTemplate(ctx context.Context, slug string) error {
	return c.delete(ctx, templatePath(slug, ""))
}

// GetCompileStatus returns the last compile state of a template
func (c *Client) GetCompileStatus(ctx context.Context, slug string) (*models.CompileStatus, error) {
	var status models.CompileStatus
	if err := c.get(ctx, templatePath(slug, "/compile"), &status); err != nil {
		return nil, err
	}
	if status.Slug == "" {
		status.Slug = slug
	}
	return &status, nil
}

// StartCompile asks the backend to compile a template into a generator
func (c *Client) StartCompile(ctx context.Context, slug string) error {
	var result okResponse
	return c.post(ctx, templatePath(slug, "/compile"), struct{}{}, &result)
}

// CompileStreamURL is the SSE endpoint carrying compile progress for slug
func (c *Client) CompileStreamURL(slug string) string {
	return c.URL(templatePath(slug, "/compile/stream"))
}

// GetPreview returns the HTML preview rendered by the backend
func (c *Client) GetPreview(ctx context.Context, slug string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, templatePath(slug, "/preview"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read preview: %w", err)
	}
	return string(body), nil
}

// GetFullGen returns the generated full-generation source for a template
func (c *Client) GetFullGen(ctx context.Context, slug string) (string, error) {
	var result struct {
		Code string `json:"code"`
	}
	if err := c.get(ctx, templatePath(slug, "/fullgen"), &result); err != nil {
		return "", err
	}
	return result.Code, nil
}

// OpenTemplateFolder asks the backend to open the template folder on its host
func (c *Client) OpenTemplateFolder(ctx context.Context, slug string) error {
	return c.post(ctx, templatePath(slug, "/open-folder"), struct{}{}, nil)
}

// RevealTemplate asks the backend to reveal the template file on its host
func (c *Client) RevealTemplate(ctx context.Context, slug string) error {
	return c.post(ctx, templatePath(slug, "/reveal"), struct{}{}, nil)
}

// TemplateMetadataStreamURL is the SSE notification channel for template metadata
func (c *Client) TemplateMetadataStreamURL() string {
	return c.URL("/api/templates/metadata/stream")
}
