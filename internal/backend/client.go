// Package backend is the HTTP client for the prediction API that serves
// year-keyed generation records for every resource type.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/netutil"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 4 << 10

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client // optional; defaults to a DNS-cached client
}

// Client talks to the prediction API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient(cfg.Timeout)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "energy-reports"
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: httpClient,
		userAgent:  userAgent,
	}, nil
}

// Resource returns the per-type view of the API for cfg.
func (c *Client) Resource(cfg resources.Config) *Resource {
	return &Resource{
		client:   c,
		key:      cfg.Key,
		endpoint: "/" + strings.Trim(cfg.Endpoint, "/"),
	}
}

// Resource is the API surface of a single resource type.
type Resource struct {
	client   *Client
	key      string
	endpoint string
}

// List reads the records of r's type within yr.
func (r *Resource) List(ctx context.Context, yr models.YearRange) ([]models.GenerationRecord, error) {
	params := url.Values{
		"start_year": {strconv.Itoa(yr.Start)},
		"end_year":   {strconv.Itoa(yr.End)},
	}

	var body ListResponse
	if err := r.client.do(ctx, "fetch_range", r.key, http.MethodGet, r.endpoint, params, nil, &body); err != nil {
		return nil, err
	}
	if body.Status != StatusSuccess {
		return nil, internalerrors.Network("fetch_range", r.key, fmt.Errorf("backend returned status %q: %s", body.Status, body.Message))
	}

	records := make([]models.GenerationRecord, 0, len(body.Predictions))
	dropped := 0
	for _, p := range body.Predictions {
		rec, ok := p.ToRecord(r.key)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		log.Warn().
			Str("resource", r.key).
			Int("dropped", dropped).
			Msg("Skipped prediction rows with missing or invalid values")
	}
	return records, nil
}

// Create upserts a record for d.Year.
func (r *Resource) Create(ctx context.Context, d models.Draft) error {
	req := WriteRequestFromDraft(d)
	return r.write(ctx, "create", http.MethodPost, r.endpoint, req)
}

// Update replaces the value of the record for year.
func (r *Resource) Update(ctx context.Context, year int, d models.Draft) error {
	req := WriteRequestFromDraft(d)
	return r.write(ctx, "update", http.MethodPut, r.yearPath(year), req)
}

// SetDeleted flips the soft-delete flag of the record for year.
func (r *Resource) SetDeleted(ctx context.Context, year int, deleted bool) error {
	op := "remove"
	if !deleted {
		op = "recover"
	}
	return r.write(ctx, op, http.MethodPut, r.yearPath(year), WriteRequest{IsDeleted: &deleted})
}

func (r *Resource) yearPath(year int) string {
	return r.endpoint + "/" + strconv.Itoa(year)
}

func (r *Resource) write(ctx context.Context, op, method, path string, payload WriteRequest) error {
	var body StatusResponse
	if err := r.client.do(ctx, op, r.key, method, path, nil, payload, &body); err != nil {
		return err
	}
	if body.Status != "" && body.Status != StatusSuccess {
		return internalerrors.Network(op, r.key, fmt.Errorf("backend returned status %q: %s", body.Status, body.Message))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, resource, method, path string, params url.Values, payload interface{}, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return internalerrors.Serialization(op, resource, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return internalerrors.Network(op, resource, fmt.Errorf("build request: %w", err))
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	requestID := logging.RequestID(ctx)
	if requestID == "" {
		_, requestID = logging.WithRequestID(ctx, "")
	}
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return internalerrors.Network(op, resource, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Str("resource", resource).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Str("request_id", requestID).
		Msg("Backend request completed")

	if resp.StatusCode >= 400 {
		return statusError(op, resource, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF && method != http.MethodGet {
			return nil
		}
		return internalerrors.Network(op, resource, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func statusError(op, resource string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(body))
	var status StatusResponse
	if json.Unmarshal(body, &status) == nil && status.Message != "" {
		message = status.Message
	}
	apiErr := fmt.Errorf("API error %d: %s", resp.StatusCode, message)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return internalerrors.New(internalerrors.ErrorTypeNotFound, op, resource, apiErr).WithStatusCode(resp.StatusCode)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e := internalerrors.New(internalerrors.ErrorTypeValidation, op, resource, apiErr).WithStatusCode(resp.StatusCode)
		e.Fields = []internalerrors.FieldError{{Field: "request", Message: message}}
		return e
	default:
		return internalerrors.New(internalerrors.ErrorTypeNetwork, op, resource, apiErr).WithStatusCode(resp.StatusCode)
	}
}
