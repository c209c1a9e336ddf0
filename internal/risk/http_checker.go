package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPCheckerConfig configures the HTTP risk service client.
type HTTPCheckerConfig struct {
	// Endpoint is the base URL of the risk API.
	Endpoint string
	// Timeout bounds a single request.
	Timeout time.Duration
}

// HTTPChecker queries an external risk service over HTTP. Live and
// virtual runs use it; service errors surface to the caller so the
// driver can treat them as "no new information".
type HTTPChecker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPChecker creates an HTTP-backed risk checker.
func NewHTTPChecker(cfg HTTPCheckerConfig) *HTTPChecker {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Compile-time interface check.
var _ Checker = (*HTTPChecker)(nil)

type holderRiskResponse struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason"`
}

type creatorRiskResponse struct {
	Flagged bool `json:"flagged"`
}

// CheckHolderRisk queries GET {endpoint}/holder?token={address}.
func (c *HTTPChecker) CheckHolderRisk(ctx context.Context, tokenAddress string) (HolderResult, error) {
	var body holderRiskResponse
	if err := c.get(ctx, "holder", "token", tokenAddress, &body); err != nil {
		return HolderResult{}, err
	}
	return HolderResult{Flagged: body.Flagged, Reason: body.Reason}, nil
}

// CheckCreatorRisk queries GET {endpoint}/creator?address={address}.
func (c *HTTPChecker) CheckCreatorRisk(ctx context.Context, creatorAddress string) (bool, error) {
	var body creatorRiskResponse
	if err := c.get(ctx, "creator", "address", creatorAddress, &body); err != nil {
		return false, err
	}
	return body.Flagged, nil
}

func (c *HTTPChecker) get(ctx context.Context, path, param, value string, out interface{}) error {
	u := fmt.Sprintf("%s/%s?%s=%s", c.endpoint, path, param, url.QueryEscape(value))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build risk request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("query risk service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query risk service: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode risk response: %w", err)
	}
	return nil
}
