// Package shipping implements the fee resolver against a GHN-style delivery
// fee endpoint. The caller bounds each quote with a context deadline; this
// client never retries on its own.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient builds a resolver talking to baseURL. httpc may be nil, in which
// case http.DefaultClient is used; per-call deadlines come from the context.
func NewClient(baseURL, token string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, token: token, httpc: httpc}
}

type feeRequest struct {
	FromDistrictID string `json:"from_district_id"`
	ToDistrictID   string `json:"to_district_id"`
	ServiceID      int    `json:"service_id"`
}

type feeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Total int64 `json:"total"`
	} `json:"data"`
}

// Quote returns the delivery fee between two district codes. Any transport
// error, non-2xx response, upstream error code, or negative total is a
// failed quote.
func (c *Client) Quote(ctx context.Context, originCode, destCode string, serviceID int) (int64, error) {
	body, err := json.Marshal(feeRequest{
		FromDistrictID: originCode,
		ToDistrictID:   destCode,
		ServiceID:      serviceID,
	})
	if err != nil {
		return -1, fmt.Errorf("shipping: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipping-order/fee", bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("shipping: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Token", c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return -1, fmt.Errorf("shipping: quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return -1, fmt.Errorf("shipping: quote: unexpected status %d", resp.StatusCode)
	}

	var out feeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return -1, fmt.Errorf("shipping: decode response: %w", err)
	}
	if out.Code != http.StatusOK {
		return -1, fmt.Errorf("shipping: quote rejected: %s", out.Message)
	}
	if out.Data.Total < 0 {
		return -1, fmt.Errorf("shipping: negative fee %d", out.Data.Total)
	}

	return out.Data.Total, nil
}
