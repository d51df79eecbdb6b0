package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/model"
	apperrors "asset-inventory-api/pkg/errors"
)

// Filter narrows an asset listing. Zero values mean "no constraint".
type Filter struct {
	AssetType  string
	Status     model.AssetStatus
	Unassigned bool
}

// AssetPage is one page of a filtered asset listing.
type AssetPage struct {
	Items []model.Asset
	Total int
}

// PhoneCheck is the result of a phone-number uniqueness probe.
type PhoneCheck struct {
	Exists  bool       `json:"exists"`
	AssetID *uuid.UUID `json:"asset_id,omitempty"`
}

// Client is the inventory API as seen by the asset editor core. The form,
// the availability pools and the cross-link resolver depend only on this
// interface.
type Client interface {
	FetchEditorConfig(ctx context.Context) (*config.EditorConfig, error)
	ListAssets(ctx context.Context, filter Filter, page, pageSize int) (*AssetPage, error)
	CheckPhoneUnique(ctx context.Context, normalizedNumber string) (*PhoneCheck, error)
	CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, asset model.Asset) error
}

// ClientConfig holds configuration for the HTTP inventory client.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxPayloadSize int64
}

// DefaultClientConfig returns a default configuration for the given base URL.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		Timeout:        10 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		MaxPayloadSize: 1024 * 1024, // 1MB
	}
}

// httpClient is the HTTP implementation of Client.
type httpClient struct {
	config ClientConfig
	client *http.Client
	logger *log.Logger
}

// NewHTTPClient creates an inventory Client backed by the REST API at the
// configured base URL.
func NewHTTPClient(config ClientConfig, logger *log.Logger) Client {
	if logger == nil {
		logger = log.Default()
	}
	return &httpClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// listResponse mirrors the asset list payload produced by the REST handlers.
type listResponse struct {
	Assets     []model.Asset `json:"assets"`
	Pagination struct {
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

// createResponse mirrors the success envelope of the create endpoint.
type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *httpClient) ListAssets(ctx context.Context, filter Filter, page, pageSize int) (*AssetPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	if filter.AssetType != "" {
		query.Set("type", filter.AssetType)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Unassigned {
		query.Set("unassigned", "true")
	}

	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/v1/assets?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode asset list: %w", err)
	}
	return &AssetPage{Items: parsed.Assets, Total: parsed.Pagination.TotalItems}, nil
}

func (c *httpClient) FetchEditorConfig(ctx context.Context) (*config.EditorConfig, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/v1/editor/config", nil)
	if err != nil {
		return nil, err
	}

	var editorConfig config.EditorConfig
	if err := json.Unmarshal(body, &editorConfig); err != nil {
		return nil, fmt.Errorf("failed to decode editor config: %w", err)
	}
	return &editorConfig, nil
}

func (c *httpClient) CheckPhoneUnique(ctx context.Context, normalizedNumber string) (*PhoneCheck, error) {
	query := url.Values{}
	query.Set("number", normalizedNumber)

	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/v1/assets/phone-check?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var check PhoneCheck
	if err := json.Unmarshal(body, &check); err != nil {
		return nil, fmt.Errorf("failed to decode phone check result: %w", err)
	}
	return &check, nil
}

func (c *httpClient) CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	payload, err := c.marshalPayload(asset)
	if err != nil {
		return nil, err
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, "/api/v1/assets", payload)
	if err != nil {
		return nil, err
	}

	var parsed createResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}
	id, err := uuid.Parse(parsed.Data.ID)
	if err != nil {
		return nil, fmt.Errorf("create response carried an invalid asset id: %w", err)
	}

	asset.ID = id
	return &asset, nil
}

func (c *httpClient) UpdateAsset(ctx context.Context, id uuid.UUID, asset model.Asset) error {
	payload, err := c.marshalPayload(asset)
	if err != nil {
		return err
	}
	_, err = c.doWithRetry(ctx, http.MethodPut, "/api/v1/assets/"+id.String(), payload)
	return err
}

func (c *httpClient) marshalPayload(asset model.Asset) ([]byte, error) {
	payload, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal asset payload: %w", err)
	}
	if int64(len(payload)) > c.config.MaxPayloadSize {
		return nil, fmt.Errorf("asset payload too large: %d bytes (max %d)", len(payload), c.config.MaxPayloadSize)
	}
	return payload, nil
}

// doWithRetry performs the request, retrying transient failures. Client
// errors (4xx) are returned immediately.
func (c *httpClient) doWithRetry(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Printf("Retrying inventory request %s %s (attempt %d/%d)", method, path, attempt+1, c.config.RetryAttempts+1)
		}

		body, retryable, err := c.doAttempt(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Printf("Inventory request %s %s attempt %d failed: %v", method, path, attempt+1, err)
	}
	return nil, fmt.Errorf("inventory request failed after %d attempts: %w", c.config.RetryAttempts+1, lastErr)
}

func (c *httpClient) doAttempt(ctx context.Context, method, path string, payload []byte) (body []byte, retryable bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "asset-inventory-api/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ = io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		apiErr := apperrors.FromAPIResponse(resp.StatusCode, body)
		return nil, apiErr.Retryable(), apiErr
	}
	return body, false, nil
}
