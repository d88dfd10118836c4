package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPConfig holds the connection settings for an HTTP catalog source.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPSource is a resty-backed Source speaking a plain JSON protocol:
//
//	GET /catalog                  -> [{"sku": ..., ...}]
//	PUT /catalog/{sku}/quantity   <- {"quantity": n}
type HTTPSource struct {
	client *resty.Client
}

// NewHTTPSource builds an HTTP catalog source from config.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.Token != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}

	return &HTTPSource{client: client}
}

// FetchCatalog pulls the complete remote catalog.
func (s *HTTPSource) FetchCatalog(ctx context.Context) ([]Record, error) {
	var records []Record
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&records).
		Get("/catalog")
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch catalog: remote returned %s", resp.Status())
	}
	return records, nil
}

// PushQuantity writes one SKU's quantity to the remote catalog.
func (s *HTTPSource) PushQuantity(ctx context.Context, sku string, quantity int) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"quantity": quantity}).
		Put(fmt.Sprintf("/catalog/%s/quantity", sku))
	if err != nil {
		return fmt.Errorf("push quantity for %s: %w", sku, err)
	}
	if resp.IsError() {
		return fmt.Errorf("push quantity for %s: remote returned %s", sku, resp.Status())
	}
	return nil
}
