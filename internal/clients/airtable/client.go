// Package airtable reads product content records from an Airtable table.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"storefront-service/internal/clients"
)

const (
	serviceName    = "Airtable"
	defaultBaseURL = "https://api.airtable.com/v0"
	maxPageSize    = 100
)

type Config struct {
	APIKey    string
	BaseID    string
	TableName string
	BaseURL   string
}

type Client struct {
	cfg         Config
	httpClient  *http.Client
	retrier     *clients.Retrier
	rateLimiter *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetrier(r *clients.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retrier:     clients.NewRetrier(nil),
		rateLimiter: rate.NewLimiter(rate.Limit(5), 1), // Airtable allows 5 requests per second per base
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOptions narrows a record listing
type ListOptions struct {
	FilterByFormula string
	// MaxRecords stops paging once this many valid records are collected; 0 means all
	MaxRecords int
}

// ListResult holds the valid records and the reasons others were rejected
type ListResult struct {
	Records  []Record
	Rejected []error
}

// ListRecords pages through the table following the offset cursor
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) (*ListResult, error) {
	result := &ListResult{Records: []Record{}}
	offset := ""
	for {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(maxPageSize))
		if opts.FilterByFormula != "" {
			params.Set("filterByFormula", opts.FilterByFormula)
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		page, err := c.listPage(ctx, params)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Records {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				result.Rejected = append(result.Rejected, fmt.Errorf("malformed record: %w", err))
				continue
			}
			if err := rec.Validate(); err != nil {
				result.Rejected = append(result.Rejected, err)
				continue
			}
			result.Records = append(result.Records, rec)
			if opts.MaxRecords > 0 && len(result.Records) >= opts.MaxRecords {
				return result, nil
			}
		}

		if page.Offset == "" {
			return result, nil
		}
		offset = page.Offset
	}
}

type listResponse struct {
	Records []json.RawMessage `json:"records"`
	Offset  string            `json:"offset"`
}

func (c *Client) listPage(ctx context.Context, params url.Values) (*listResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/%s/%s?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.BaseID), url.PathEscape(c.cfg.TableName), params.Encode())
	body, err := c.retrier.Send(ctx, c.httpClient, serviceName, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse records response: %w", err)
	}
	return &resp, nil
}
