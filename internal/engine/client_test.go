package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/docqa-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.EngineConfig{
		BaseURL:       server.URL,
		QueryTimeout:  5 * time.Second,
		UploadTimeout: 5 * time.Second,
		DeleteTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client, server
}

func TestAskSendsQuestionAndParsesAnswer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What is the refund policy?", body["question"])
		assert.Equal(t, "py-doc-1", body["document_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Refunds are issued within 30 days.","success":true,"document_id":"py-doc-1"}`))
	}))

	answer, err := client.Ask(context.Background(), "py-doc-1", "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, "Refunds are issued within 30 days.", answer.Answer)
	assert.True(t, answer.Success)
}

func TestAskSurfacesEngineErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))

	_, err := client.Ask(context.Background(), "py-doc-1", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestUploadSendsMultipartFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.pdf", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "file body", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"document_id":"py-doc-9","chunks_processed":12}`))
	}))

	uploaded, err := client.Upload(context.Background(), "report.pdf", strings.NewReader("file body"))
	require.NoError(t, err)
	assert.True(t, uploaded.Success)
	assert.Equal(t, "py-doc-9", uploaded.DocumentID)
	assert.Equal(t, 12, uploaded.ChunksProcessed)
}

func TestDeleteTargetsDocumentPath(t *testing.T) {
	var requested string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		requested = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Delete(context.Background(), "py-doc-1"))
	assert.Equal(t, "/documents/py-doc-1", requested)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.EngineConfig{})
	assert.Error(t, err)
}
