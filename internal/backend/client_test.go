package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/docsmith/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
}

// newTestServer returns a client wired to handler and a log of received requests
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, recordedRequest{Method: r.Method, Path: r.URL.Path})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL, WithRateLimit(0)), &requests
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUploadTemplate_Multipart(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "invoice.docx")
	require.NoError(t, os.WriteFile(filePath, []byte("docx-bytes"), 0644))

	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "invoice.docx", header.Filename)
		assert.Equal(t, "docx-bytes", string(content))
		assert.Equal(t, "Invoice", r.FormValue("name"))
		assert.Equal(t, "", r.FormValue("slug"))

		writeJSON(w, http.StatusOK, map[string]string{"slug": "invoice", "name": "Invoice"})
	})

	result, err := client.UploadTemplate(context.Background(), filePath, "Invoice", "")
	require.NoError(t, err)
	assert.Equal(t, "invoice", result.Slug)
	assert.Equal(t, "Invoice", result.Name)
	require.Len(t, *requests, 1)
	assert.Equal(t, recordedRequest{Method: http.MethodPost, Path: "/api/templates/upload"}, (*requests)[0])
}

func TestUploadTemplate_MissingSlug(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "a.docx")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0644))

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	_, err := client.UploadTemplate(context.Background(), filePath, "", "")
	assert.Error(t, err)
}

func TestAPIError_SurfacesStatus(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
	})

	_, err := client.GetCompileStatus(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "template not found", apiErr.Message)
	assert.Equal(t, "GET /api/templates/missing/compile", apiErr.Endpoint)
	assert.Contains(t, err.Error(), "404 Not Found")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAPIError_PlainBody(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := client.DeleteTemplate(context.Background(), "invoice")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"bare array", `[{"slug":"a"},{"slug":"b"}]`, []string{"a", "b"}, false},
		{"wrapped", `{"templates":[{"slug":"c"}]}`, []string{"c"}, false},
		{"wrapped null", `{"templates":null}`, nil, false},
		{"null", `null`, nil, false},
		{"missing key", `{"items":[]}`, nil, true},
		{"garbage", `"nope"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []models.TemplateItem
			err := decodeList(json.RawMessage(tt.raw), "templates", &items)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var slugs []string
			for _, item := range items {
				slugs = append(slugs, item.Slug)
			}
			assert.Equal(t, tt.want, slugs)
		})
	}
}

func TestJobActions_Paths(t *testing.T) {
	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, client.CancelJob(ctx, "job-1"))
	require.NoError(t, client.DeleteJob(ctx, "job-1"))
	require.NoError(t, client.ClearJobs(ctx))
	require.NoError(t, client.RevealJob(ctx, "job 2"))

	assert.Equal(t, []recordedRequest{
		{http.MethodPost, "/api/generate/jobs/job-1/cancel"},
		{http.MethodDelete, "/api/generate/jobs/job-1"},
		{http.MethodDelete, "/api/generate/jobs"},
		{http.MethodPost, "/api/generate/jobs/job 2/reveal"},
	}, *requests)
}

func TestCreateJob(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cust-1", req.CustomerID)
		assert.Equal(t, "invoice", req.Template)
		writeJSON(w, http.StatusOK, map[string]string{"id": "job-9"})
	})

	id, err := client.CreateJob(context.Background(), models.GenerateRequest{CustomerID: "cust-1", Template: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, "job-9", id)
}

func TestListJobs(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[{"id":"a","status":"running"},{"id":"b","status":"done","file":"out.docx"}]}`)
	})

	jobs, err := client.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.False(t, jobs[0].IsTerminal())
	assert.True(t, jobs[1].IsTerminal())
	assert.Equal(t, "out.docx", jobs[1].File)
}

func TestDownloadJobFile(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.docx"`)
		fmt.Fprint(w, "payload")
	})

	var buf bytes.Buffer
	name, n, err := client.DownloadJobFile(context.Background(), "job-1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "report.docx", name)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())
}

func TestWorkspaces(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/anythingllm/workspaces":
			fmt.Fprint(w, `{"workspaces":[{"name":"Acme","slug":"acme","threads":[{"name":"t","slug":"t1"}]}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/anythingllm/workspaces":
			fmt.Fprint(w, `{"workspace":{"name":"New","slug":"new"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/anythingllm/workspaces/acme":
			fmt.Fprint(w, `{"name":"Acme","slug":"acme"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	list, err := client.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Threads, 1)

	created, err := client.CreateWorkspace(ctx, "New")
	require.NoError(t, err)
	assert.Equal(t, "new", created.Slug)

	got, err := client.GetWorkspace(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
}

func TestPingAnythingLLM_OKField(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true}`)
	})

	result, err := client.PingAnythingLLM(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Online)
}

func TestStreamURLs(t *testing.T) {
	client := NewClient("http://localhost:3001/")

	assert.Equal(t, "http://localhost:3001/api/templates/invoice/compile/stream", client.CompileStreamURL("invoice"))
	assert.Equal(t, "http://localhost:3001/api/uploads/metadata-stream/c1", client.MetadataStreamURL("c1"))
	assert.Equal(t, "http://localhost:3001/api/templates/metadata/stream", client.TemplateMetadataStreamURL())
}

func TestOpenStream(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
	})

	stream, err := client.OpenMetadataStream(context.Background(), "c1")
	require.NoError(t, err)
	defer stream.Close()

	event, ok := <-stream.Events()
	require.True(t, ok)
	assert.Equal(t, `{"type":"connected"}`, event.Data)
}

type countingTransport struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return http.DefaultTransport.RoundTrip(req)
}

func TestWithTimeout_KeepsCustomHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	t.Cleanup(server.Close)

	transport := &countingTransport{}
	custom := &http.Client{Transport: transport}

	client := NewClient(server.URL,
		WithHTTPClient(custom),
		WithTimeout(7*time.Second),
		WithRateLimit(0),
	)

	assert.Equal(t, 7*time.Second, client.httpClient.Timeout)
	assert.Same(t, transport, client.httpClient.Transport)
	assert.Zero(t, custom.Timeout, "caller's client is not mutated")

	require.NoError(t, client.Health(context.Background(), ""))
	assert.Equal(t, 1, transport.calls)
}
