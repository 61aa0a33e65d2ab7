package backend

import (
	"context"

	"github.com/ternarybob/docsmith/internal/sse"
)

// OpenStream dials an SSE endpoint on the backend
func (c *Client) OpenStream(ctx context.Context, url string) (*sse.Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return sse.Dial(ctx, c.streamClient, url, nil, c.logger)
}

// OpenCompileStream opens the compile progress stream for a template
func (c *Client) OpenCompileStream(ctx context.Context, slug string) (*sse.Stream, error) {
	return c.OpenStream(ctx, c.CompileStreamURL(slug))
}

// OpenMetadataStream opens the customer upload notification stream
func (c *Client) OpenMetadataStream(ctx context.Context, customerID string) (*sse.Stream, error) {
	return c.OpenStream(ctx, c.MetadataStreamURL(customerID))
}

// OpenTemplateMetadataStream opens the template metadata notification stream
func (c *Client) OpenTemplateMetadataStream(ctx context.Context) (*sse.Stream, error) {
	return c.OpenStream(ctx, c.TemplateMetadataStreamURL())
}
