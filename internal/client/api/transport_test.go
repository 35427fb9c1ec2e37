package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/pkg/api"
)

func TestWithLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.HealthPath:
			_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient(server.URL, "secret-token").WithLogger(logger)

	require.NoError(t, client.Ping(context.Background()))
	assert.Empty(t, buf.String(), "health checks are not logged")

	err := client.CreateRemote(context.Background(), models.TableMaterials, json.RawMessage(`{"id":"m1","title":"x"}`))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/api/v1/materials")
	assert.Contains(t, out, "status=500")
	assert.NotContains(t, out, "secret-token")
}

func TestWithLogger_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := NewClient(url, "").WithLogger(logger).DeleteRemote(context.Background(), models.TableFolders, "f1")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "HTTP request failed")
}

func TestWithLogger_Nil(t *testing.T) {
	client := NewClient("http://localhost", "")
	assert.Same(t, client, client.WithLogger(nil))
	assert.Nil(t, client.httpClient.Transport)
}
