package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultEndpoint is the fixed purchase-search API.
	DefaultEndpoint = "https://reportaproblem.apple.com/api/purchase/search"
	// DefaultReferrer matches what the site itself sends.
	DefaultReferrer = "https://reportaproblem.apple.com/?s=6"

	defaultAcceptLanguage = "en-US,en;q=0.9"
)

// Client issues authenticated page requests against the purchase-search
// endpoint using a captured credential. It performs no retries and
// enforces no timeout of its own; cancellation and deadlines come from
// the caller's context.
type Client struct {
	httpClient *http.Client
	endpoint   string
	referrer   string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithReferrer(referrer string) ClientOption {
	return func(c *Client) { c.referrer = referrer }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		endpoint:   DefaultEndpoint,
		referrer:   DefaultReferrer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage requests one page of purchase history. A nil cursor
// requests the first page. Transport errors and non-200 responses fail
// with ErrNetworkFailure.
func (c *Client) FetchPage(ctx context.Context, cred Credential, cursor *string) (*Page, error) {
	reqBody := SearchRequest{DSID: cred.DSID}
	if cursor != nil {
		reqBody.BatchID = *cursor
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	// Replay the captured header set verbatim, then fill defaults the
	// site itself would send.
	for k, v := range cred.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", defaultAcceptLanguage)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", c.referrer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNetworkFailure, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetworkFailure, err)
	}

	return ParsePage(data)
}
