package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"firmus/pkg/platform/circuit"
)

// maxResponseBytes caps how much of an upstream body is read. Registries
// occasionally return enormous documents; 10 MiB covers every legitimate
// payload we have observed.
const maxResponseBytes = 10 << 20

const defaultUserAgent = "firmus-registry/1.0"

// Client is the shared HTTP plumbing for REST and SOAP registry adapters:
// one pooled transport, per-call timeout via context, circuit breaker
// consultation, and mapping of transport failures onto the error taxonomy.
type Client struct {
	httpClient *http.Client
	breaker    *circuit.Breaker
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBreaker attaches a circuit breaker consulted before every call.
func WithBreaker(b *circuit.Breaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// point adapters at httptest servers with custom transports.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a registry HTTP client with the given request timeout.
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes one request. It returns the status code and body for 2xx
// and 404 responses; every other condition maps onto an AdapterError.
// 404 is returned to the caller because "confirmed not found" is a
// registry answer, not a failure.
func (c *Client) Do(ctx context.Context, adapterID string, req *http.Request) (int, []byte, error) {
	if c.breaker != nil && c.breaker.IsOpen() {
		return 0, nil, NewAdapterError(ErrorRegistryOutage, adapterID, "circuit open, skipping call", nil)
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.recordFailure()
		return 0, nil, categorizeTransportError(adapterID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure()
		return 0, nil, NewAdapterError(ErrorRegistryOutage, adapterID, "read response body", err)
	}

	switch {
	case resp.StatusCode >= 500:
		c.recordFailure()
		return 0, nil, NewAdapterError(ErrorRegistryOutage, adapterID,
			fmt.Sprintf("registry returned status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, nil, NewAdapterError(ErrorRateLimited, adapterID, "registry rate limit hit", nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return 0, nil, NewAdapterError(ErrorAuthentication, adapterID,
			fmt.Sprintf("registry rejected credentials with status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300):
		c.recordSuccess()
		return resp.StatusCode, body, nil
	default:
		return 0, nil, NewAdapterError(ErrorContractMismatch, adapterID,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

// GetJSON issues a GET and decodes a 2xx JSON body into out. A 404 returns
// found=false with no error. The raw body is returned for audit storage.
func (c *Client) GetJSON(ctx context.Context, adapterID, url string, headers map[string]string, out any) (bool, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, nil, NewAdapterError(ErrorInternal, adapterID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, body, err := c.Do(ctx, adapterID, req)
	if err != nil {
		return false, nil, err
	}
	if status == http.StatusNotFound {
		return false, nil, nil
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return false, nil, NewAdapterError(ErrorBadData, adapterID, "decode response", err)
		}
	}
	return true, body, nil
}

// PostJSON issues a POST with a JSON payload and decodes a 2xx JSON body
// into out. A 404 returns found=false with no error.
func (c *Client) PostJSON(ctx context.Context, adapterID, url string, payload any, headers map[string]string, out any) (bool, []byte, error) {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return false, nil, NewAdapterError(ErrorInternal, adapterID, "encode request", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return false, nil, NewAdapterError(ErrorInternal, adapterID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, body, err := c.Do(ctx, adapterID, req)
	if err != nil {
		return false, nil, err
	}
	if status == http.StatusNotFound {
		return false, nil, nil
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return false, nil, NewAdapterError(ErrorBadData, adapterID, "decode response", err)
		}
	}
	return true, body, nil
}

// PostXML issues a SOAP 1.1 request and returns the raw 2xx response body.
// Fault handling beyond transport level is the adapter's business: SOAP
// registries encode "not found" inside successful responses.
func (c *Client) PostXML(ctx context.Context, adapterID, url, soapAction string, envelope []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, NewAdapterError(ErrorInternal, adapterID, "build request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	status, body, err := c.Do(ctx, adapterID, req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, NewAdapterError(ErrorContractMismatch, adapterID, "SOAP endpoint returned 404", nil)
	}
	return body, nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

func categorizeTransportError(adapterID string, err error) *AdapterError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewAdapterError(ErrorTimeout, adapterID, "registry call timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewAdapterError(ErrorTimeout, adapterID, "registry call timed out", err)
	case errors.Is(err, context.Canceled):
		return NewAdapterError(ErrorInternal, adapterID, "registry call canceled", err)
	default:
		return NewAdapterError(ErrorRegistryOutage, adapterID, "registry unreachable", err)
	}
}
