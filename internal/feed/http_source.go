package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"token-replay-lab/internal/domain"
)

// HTTPSourceConfig configures the HTTP quote source.
type HTTPSourceConfig struct {
	// Endpoint is the base URL of the quote API.
	Endpoint string
	// Timeout bounds a single request.
	Timeout time.Duration
}

// HTTPSource fetches quotes from a JSON HTTP API.
// The endpoint is expected to serve GET {endpoint}/quote?token={address}.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSource creates a new HTTP quote source.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Compile-time interface check.
var _ Source = (*HTTPSource)(nil)

type quoteResponse struct {
	TokenAddress string  `json:"tokenAddress"`
	TimestampMs  int64   `json:"timestampMs"`
	Price        float64 `json:"price"`
	Volume       float64 `json:"volume"`
	HolderCount  float64 `json:"holderCount"`
	TVL          float64 `json:"tvl"`
	MarketCap    float64 `json:"marketCap"`
}

// Fetch retrieves the newest quote for a token.
func (s *HTTPSource) Fetch(ctx context.Context, tokenAddress string) (*Quote, error) {
	u := fmt.Sprintf("%s/quote?token=%s", s.endpoint, url.QueryEscape(tokenAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoQuote
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quote: unexpected status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	return &Quote{
		TokenAddress: tokenAddress,
		TimestampMs:  body.TimestampMs,
		Price:        body.Price,
		Measurement: domain.Measurement{
			Volume:      body.Volume,
			HolderCount: body.HolderCount,
			TVL:         body.TVL,
			MarketCap:   body.MarketCap,
		},
	}, nil
}
