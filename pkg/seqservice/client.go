package seqservice

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

	"github.com/illmade-knight/go-intseq/pkg/sequence"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Is maps status codes back to the service's sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case sequence.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrTooManyIndices:
		return e.StatusCode == http.StatusBadRequest && strings.Contains(e.Message, ErrTooManyIndices.Error())
	}
	return false
}

// Client calls the HTTP API served by Handler.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL. A nil httpClient
// uses one with a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Sequences lists the hosted implementations.
func (c *Client) Sequences(ctx context.Context) (SequenceList, error) {
	var out SequenceList
	err := c.do(ctx, http.MethodGet, "/v1/sequences", nil, &out)
	return out, err
}

// Describe resolves name, a full "id.kind" or a bare id, to an implementation.
func (c *Client) Describe(ctx context.Context, name string) (sequence.Info, error) {
	var out sequence.Info
	err := c.do(ctx, http.MethodGet, "/v1/sequences/"+url.PathEscape(name), nil, &out)
	return out, err
}

// Number requests a single index.
func (c *Client) Number(ctx context.Context, name string, index int) (sequence.Response, error) {
	var out sequence.Response
	path := "/v1/sequences/" + url.PathEscape(name) + "/numbers/" + strconv.Itoa(index)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Numbers requests a batch in one call.
func (c *Client) Numbers(ctx context.Context, name string, indices []int) ([]sequence.Response, error) {
	var out NumbersResult
	err := c.do(ctx, http.MethodPost, "/v1/sequences/"+url.PathEscape(name)+"/numbers", NumbersBody{Indices: indices}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Responses) != len(indices) {
		return nil, fmt.Errorf("service returned %d responses for %d indices", len(out.Responses), len(indices))
	}
	return out.Responses, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
