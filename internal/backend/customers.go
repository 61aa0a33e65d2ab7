package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ternarybob/docsmith/internal/models"
)

// ListCustomers returns all customers
func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := c.getList(ctx, "/api/customers", "customers", &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// CreateCustomer creates a customer, optionally bound to a workspace
func (c *Client) CreateCustomer(ctx context.Context, name, workspaceSlug string) (*models.Customer, error) {
	body := map[string]string{"name": name}
	if workspaceSlug != "" {
		body["workspaceSlug"] = workspaceSlug
	}

	var raw json.RawMessage
	if err := c.post(ctx, "/api/customers", body, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		Customer *models.Customer `json:"customer"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Customer != nil {
		return envelope.Customer, nil
	}

	var customer models.Customer
	if err := json.Unmarshal(raw, &customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}
	return &customer, nil
}

// DeleteCustomer removes a customer
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/customers/"+url.PathEscape(id))
}

// UploadCustomerDocument uploads a document for metadata extraction.
// Progress arrives on the customer's metadata stream.
func (c *Client) UploadCustomerDocument(ctx context.Context, customerID, filePath string) error {
	return c.postMultipart(ctx, "/api/uploads/"+url.PathEscape(customerID), filePath, nil, nil)
}

// MetadataStreamURL is the SSE notification channel for a customer's uploads
func (c *Client) MetadataStreamURL(customerID string) string {
	return c.URL("/api/uploads/metadata-stream/" + url.PathEscape(customerID))
}
