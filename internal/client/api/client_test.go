package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/client/connectivity"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/pkg/api"
)

var (
	_ clientsync.Backend  = (*Client)(nil)
	_ connectivity.Prober = (*Client)(nil)
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "token")

	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, "token", client.token)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Mutations(t *testing.T) {
	snapshot := json.RawMessage(`{"id":"m 1","title":"Test"}`)

	tests := []struct {
		call       func(c *Client) error
		name       string
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{
			name:       "create",
			call:       func(c *Client) error { return c.CreateRemote(context.Background(), models.TableMaterials, snapshot) },
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/materials",
			wantBody:   string(snapshot),
		},
		{
			name:       "update",
			call:       func(c *Client) error { return c.UpdateRemote(context.Background(), models.TableMaterials, snapshot) },
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/materials/m 1",
			wantBody:   string(snapshot),
		},
		{
			name:       "delete",
			call:       func(c *Client) error { return c.DeleteRemote(context.Background(), models.TableFolders, "f1") },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/v1/folders/f1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				if tt.wantBody != "" {
					assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
					assert.JSONEq(t, tt.wantBody, string(body))
				} else {
					assert.Empty(t, body)
				}

				if r.Method == http.MethodDelete {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				_ = json.NewEncoder(w).Encode(api.MutationResponse{ID: "m 1", Version: 2})
			}))
			defer server.Close()

			require.NoError(t, tt.call(NewClient(server.URL, "secret")))
		})
	}
}

func TestClient_NoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL, "").Ping(context.Background()))
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		status      int
	}{
		{
			name:        "structured error",
			status:      http.StatusConflict,
			body:        `{"error":"conflict","message":"stale version"}`,
			wantMessage: "conflict: stale version",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream down\n",
			wantMessage: "upstream down",
		},
		{
			name:        "json without error field",
			status:      http.StatusInternalServerError,
			body:        `{}`,
			wantMessage: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL, "").CreateRemote(context.Background(), models.TableMaterials, json.RawMessage(`{"id":"m1","title":"x"}`))
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantMessage, statusErr.Message)
		})
	}
}

func TestClient_DeleteNotFoundIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "not found"})
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL, "").DeleteRemote(context.Background(), models.TableMaterials, "m1"))
}

func TestClient_UpdateWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	err := NewClient(server.URL, "").UpdateRemote(context.Background(), models.TableMaterials, json.RawMessage(`{"title":"x"}`))
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok"})
	}))

	client := NewClient(server.URL, "")
	require.NoError(t, client.Ping(context.Background()))

	server.Close()
	assert.Error(t, client.Ping(context.Background()), "closed server is unreachable")
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient(server.URL, "").Ping(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestClient_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	err := NewClient(server.URL, "").CreateRemote(context.Background(), models.TableFolders, json.RawMessage(`{"id":"f1","name":"x"}`))
	assert.ErrorContains(t, err, "failed to decode response")
}
