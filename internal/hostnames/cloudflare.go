package hostnames

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	cloudflareAPIBase = "https://api.cloudflare.com/client/v4"
	requestTimeout    = 10 * time.Second
)

// CloudflareClient implements Client against the Cloudflare custom
// hostnames API. All calls are zone-scoped and bearer-token
// authenticated.
type CloudflareClient struct {
	zoneID   string
	apiToken string
	baseURL  string
	client   *http.Client
}

// NewCloudflareClient creates a new Cloudflare custom-hostname client
func NewCloudflareClient(zoneID, apiToken string) *CloudflareClient {
	return &CloudflareClient{
		zoneID:   zoneID,
		apiToken: apiToken,
		baseURL:  cloudflareAPIBase,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// cfResponse represents a Cloudflare API response envelope
type cfResponse struct {
	Success bool            `json:"success"`
	Errors  []cfError       `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

// cfError represents a Cloudflare API error
type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// cfCustomHostname represents a custom hostname resource (API response)
type cfCustomHostname struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	SSL      struct {
		Status            string `json:"status"`
		ValidationRecords []struct {
			TxtName  string `json:"txt_name"`
			TxtValue string `json:"txt_value"`
		} `json:"validation_records"`
		ValidationErrors []struct {
			Message string `json:"message"`
		} `json:"validation_errors"`
	} `json:"ssl"`
	OwnershipVerification struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"ownership_verification"`
}

// CreateHostname registers a new custom hostname with TXT-based DCV
func (c *CloudflareClient) CreateHostname(ctx context.Context, hostname string) (*Hostname, error) {
	payload := map[string]interface{}{
		"hostname": hostname,
		"ssl": map[string]interface{}{
			"method": "txt",
			"type":   "dv",
		},
	}

	result, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/zones/%s/custom_hostnames", c.baseURL, c.zoneID), payload)
	if err != nil {
		return nil, err
	}
	return parseHostname(result)
}

// GetHostname polls the current state of a custom hostname
func (c *CloudflareClient) GetHostname(ctx context.Context, id string) (*Hostname, error) {
	result, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("%s/zones/%s/custom_hostnames/%s", c.baseURL, c.zoneID, id), nil)
	if err != nil {
		return nil, err
	}
	return parseHostname(result)
}

// RefreshHostname re-submits the SSL config, which makes Cloudflare
// re-attempt certificate validation.
func (c *CloudflareClient) RefreshHostname(ctx context.Context, id string) (*Hostname, error) {
	payload := map[string]interface{}{
		"ssl": map[string]interface{}{
			"method": "txt",
			"type":   "dv",
		},
	}

	result, err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("%s/zones/%s/custom_hostnames/%s", c.baseURL, c.zoneID, id), payload)
	if err != nil {
		return nil, err
	}
	return parseHostname(result)
}

// DeleteHostname removes a custom hostname. A 404 from the provider is
// treated as success, the resource is already gone.
func (c *CloudflareClient) DeleteHostname(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/zones/%s/custom_hostnames/%s", c.baseURL, c.zoneID, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to send request: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to read response: %v", err), StatusCode: resp.StatusCode}
	}

	var envelope cfResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &APIError{Message: fmt.Sprintf("failed to parse response: %v", err), StatusCode: resp.StatusCode}
	}

	if !envelope.Success {
		return &APIError{
			Message:        "delete custom hostname failed",
			StatusCode:     resp.StatusCode,
			ProviderErrors: errorMessages(envelope.Errors),
		}
	}

	return nil
}

// do sends a request and unwraps the Cloudflare response envelope
func (c *CloudflareClient) do(ctx context.Context, method, url string, payload interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("failed to marshal payload: %v", err)}
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport-level failure: StatusCode stays 0
		return nil, &APIError{Message: fmt.Sprintf("failed to send request: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to read response: %v", err), StatusCode: resp.StatusCode}
	}

	var envelope cfResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to parse response: %v", err), StatusCode: resp.StatusCode}
	}

	if !envelope.Success {
		return nil, &APIError{
			Message:        "custom hostname request failed",
			StatusCode:     resp.StatusCode,
			ProviderErrors: errorMessages(envelope.Errors),
		}
	}

	return envelope.Result, nil
}

func (c *CloudflareClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
}

func parseHostname(result json.RawMessage) (*Hostname, error) {
	var ch cfCustomHostname
	if err := json.Unmarshal(result, &ch); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to parse result: %v", err)}
	}

	h := &Hostname{
		ID:        ch.ID,
		SSLStatus: ch.SSL.Status,
		OwnershipRecord: TXTRecord{
			Name:  ch.OwnershipVerification.Name,
			Value: ch.OwnershipVerification.Value,
		},
	}
	for _, rec := range ch.SSL.ValidationRecords {
		h.SSLValidationRecords = append(h.SSLValidationRecords, TXTRecord{
			Name:  rec.TxtName,
			Value: rec.TxtValue,
		})
	}
	for _, ve := range ch.SSL.ValidationErrors {
		h.ValidationErrors = append(h.ValidationErrors, ve.Message)
	}
	return h, nil
}

func errorMessages(errs []cfError) []string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return msgs
}
