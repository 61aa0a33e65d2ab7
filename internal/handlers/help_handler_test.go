package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestHelpHandler_Index(t *testing.T) {
	handler := NewHelpHandler("", arbor.NewNoOpLogger())

	rec := do(handler.ServeHelp, "GET", "/help", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<a href="/help/jobs">Jobs</a>`)
}

func TestHelpHandler_Topic(t *testing.T) {
	handler := NewHelpHandler("", arbor.NewNoOpLogger())

	rec := do(handler.ServeHelp, "GET", "/help/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Templates - DocSmith help</title>")
	assert.Contains(t, rec.Body.String(), "<table>")
}

func TestHelpHandler_JSON(t *testing.T) {
	handler := NewHelpHandler("", arbor.NewNoOpLogger())

	req := httptest.NewRequest("GET", "/help/jobs", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHelp(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Jobs", body["title"])
	assert.Contains(t, body["html"], "<strong>Cancel</strong>")
}

func TestHelpHandler_NotFound(t *testing.T) {
	handler := NewHelpHandler("", arbor.NewNoOpLogger())

	assert.Equal(t, http.StatusNotFound, do(handler.ServeHelp, "GET", "/help/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(handler.ServeHelp, "GET", "/help/..%2fsecret", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(handler.ServeHelp, "POST", "/help", "").Code)
}
