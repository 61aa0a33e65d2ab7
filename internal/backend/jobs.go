package backend

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/ternarybob/docsmith/internal/models"
)

func jobPath(id string, suffix string) string {
	return "/api/generate/jobs/" + url.PathEscape(id) + suffix
}

// ListJobs returns all job records
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.getList(ctx, "/api/generate/jobs", "jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns a single job record
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.get(ctx, jobPath(id, ""), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob starts a full generation and returns the new job id
func (c *Client) CreateJob(ctx context.Context, req models.GenerateRequest) (string, error) {
	var result struct {
		JobID string `json:"jobId"`
		ID    string `json:"id"`
	}
	if err := c.post(ctx, "/api/generate/jobs", req, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		result.JobID = result.ID
	}
	if result.JobID == "" {
		return "", fmt.Errorf("generate response did not include a job id")
	}
	return result.JobID, nil
}

// CancelJob requests cancellation. The server decides when the job actually stops.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.post(ctx, jobPath(id, "/cancel"), struct{}{}, nil)
}

// DeleteJob removes a job record
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.delete(ctx, jobPath(id, ""))
}

// ClearJobs removes all finished job records
func (c *Client) ClearJobs(ctx context.Context) error {
	return c.delete(ctx, "/api/generate/jobs")
}

// RevealJob asks the backend to reveal the output file on its host
func (c *Client) RevealJob(ctx context.Context, id string) error {
	return c.post(ctx, jobPath(id, "/reveal"), struct{}{}, nil)
}

// DownloadJobFile streams the job output into w and returns the server-provided filename
func (c *Client) DownloadJobFile(ctx context.Context, id string, w io.Writer) (string, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, jobPath(id, "/file"), nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "*/*")

	// Output files can be large; use the stream client so the REST timeout does not cut them off
	if err := c.limiter.Wait(ctx); err != nil {
		return "", 0, err
	}
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to download job file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, newAPIError(req, resp)
	}

	filename := ""
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			filename = params["filename"]
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return filename, n, fmt.Errorf("failed to write job file: %w", err)
	}
	return filename, n, nil
}
