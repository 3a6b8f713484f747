package appclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/g960059/exile-onboard/internal/api"
)

type Client struct {
	baseURL      string
	client       *http.Client
	unaryTimeout time.Duration
}

const (
	defaultUnaryTimeout = 60 * time.Second
	maxResponseBytes    = 8 << 20

	RequestIDHeader = "X-Request-ID"
)

func New(baseURL string) *Client {
	return NewWithClient(baseURL, &http.Client{})
}

func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		unaryTimeout: defaultUnaryTimeout,
	}
}

// WithUnaryTimeout returns a copy whose calls are bounded by timeout. Zero
// disables the bound.
func (c *Client) WithUnaryTimeout(timeout time.Duration) *Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.unaryTimeout = timeout
	return &clone
}

type RequestError struct {
	StatusCode int
	Detail     string
	Notes      []string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	for _, note := range e.Notes {
		if n := strings.TrimSpace(note); n != "" {
			return n
		}
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		return detail
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return "http error"
}

func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	body, err := c.request(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return api.HealthResponse{}, err
	}
	var resp api.HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return api.HealthResponse{}, fmt.Errorf("decode health response: %w", err)
	}
	return resp, nil
}

func (c *Client) ListCharacters(ctx context.Context, account, realm string) (api.CharactersEnvelope, error) {
	query := url.Values{}
	query.Set("account", strings.TrimSpace(account))
	query.Set("realm", strings.TrimSpace(realm))
	body, err := c.request(ctx, http.MethodGet, "/api/onboard/characters", query, nil)
	if err != nil {
		return api.CharactersEnvelope{}, err
	}
	var env api.CharactersEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return api.CharactersEnvelope{}, fmt.Errorf("decode characters envelope: %w", err)
	}
	return env, nil
}

// CreateRun posts a run request. A body carrying status "error" is returned
// as-is with a nil error; judging the outcome is left to the caller.
func (c *Client) CreateRun(ctx context.Context, req api.RunRequest) (api.RunResult, error) {
	body, err := c.request(ctx, http.MethodPost, "/api/onboard/run", nil, req)
	if err != nil {
		return api.RunResult{}, err
	}
	var result api.RunResult
	if err := json.Unmarshal(body, &result); err != nil {
		return api.RunResult{}, fmt.Errorf("decode run result: %w", err)
	}
	return result, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (api.RunResult, error) {
	id := strings.TrimSpace(runID)
	if id == "" {
		return api.RunResult{}, fmt.Errorf("run id is required")
	}
	body, err := c.request(ctx, http.MethodGet, "/api/onboard/run/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return api.RunResult{}, err
	}
	var env api.RunEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return api.RunResult{}, fmt.Errorf("decode run envelope: %w", err)
	}
	return env.Result, nil
}

func (c *Client) SaveInterest(ctx context.Context, req api.InterestRequest) (api.InterestResponse, error) {
	body, err := c.request(ctx, http.MethodPost, "/api/onboard/interest", nil, req)
	if err != nil {
		return api.InterestResponse{}, err
	}
	var resp api.InterestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return api.InterestResponse{}, fmt.Errorf("decode interest response: %w", err)
	}
	return resp, nil
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	reqCtx := ctx
	if c.unaryTimeout > 0 {
		if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > c.unaryTimeout {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, c.unaryTimeout)
			defer cancel()
		}
	}
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(reqCtx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{StatusCode: resp.StatusCode}
		var er api.ErrorResponse
		if err := json.Unmarshal(payload, &er); err == nil {
			reqErr.Detail = er.DetailText()
			reqErr.Notes = er.Notes
		} else {
			reqErr.Detail = strings.TrimSpace(string(payload))
		}
		return nil, reqErr
	}
	return payload, nil
}
