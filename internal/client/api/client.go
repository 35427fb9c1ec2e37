// Package api implements the remote backend over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/matsync/internal/models"
	"github.com/iudanet/matsync/pkg/api"
)

// DefaultTimeout ограничивает один HTTP запрос к серверу
const DefaultTimeout = 30 * time.Second

// ErrMissingID is returned when an update snapshot has no id to address the entity
var ErrMissingID = errors.New("mutation data has no id")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient создает новый API клиент. token отправляется как Bearer, если не пуст.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// CreateRemote sends POST /api/v1/{table} with the entity snapshot
func (c *Client) CreateRemote(ctx context.Context, table models.Table, data json.RawMessage) error {
	var resp api.MutationResponse
	if err := c.doRequest(ctx, http.MethodPost, collectionPath(table), data, &resp); err != nil {
		return fmt.Errorf("create %s request failed: %w", table, err)
	}
	return nil
}

// UpdateRemote sends PUT /api/v1/{table}/{id} with the entity snapshot
func (c *Client) UpdateRemote(ctx context.Context, table models.Table, data json.RawMessage) error {
	var entity struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &entity); err != nil || entity.ID == "" {
		return fmt.Errorf("update %s request failed: %w", table, ErrMissingID)
	}

	var resp api.MutationResponse
	if err := c.doRequest(ctx, http.MethodPut, entityPath(table, entity.ID), data, &resp); err != nil {
		return fmt.Errorf("update %s request failed: %w", table, err)
	}
	return nil
}

// DeleteRemote sends DELETE /api/v1/{table}/{id}. A 404 means the entity is already gone.
func (c *Client) DeleteRemote(ctx context.Context, table models.Table, id string) error {
	err := c.doRequest(ctx, http.MethodDelete, entityPath(table, id), nil, nil)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s request failed: %w", table, err)
	}
	return nil
}

// Ping checks GET /api/v1/health
func (c *Client) Ping(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, api.HealthPath, nil, &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func collectionPath(table models.Table) string {
	return api.BasePath + "/" + url.PathEscape(string(table))
}

func entityPath(table models.Table, id string) string {
	return collectionPath(table) + "/" + url.PathEscape(id)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body json.RawMessage, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			msg := errResp.Error
			if errResp.Message != "" {
				msg += ": " + errResp.Message
			}
			return &StatusError{StatusCode: resp.StatusCode, Message: msg}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	// Пустое тело (204) допустимо
	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
