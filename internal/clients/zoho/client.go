// Package zoho is a client for the Zoho Inventory API using the OAuth2
// refresh-token flow.
package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"storefront-service/internal/clients"
)

const (
	serviceName = "Zoho"

	// MaxPerPage is the largest page size Zoho Inventory accepts
	MaxPerPage = 200

	tokenCacheKey = "storefront:zoho:access_token"
	tokenLeeway   = 5 * time.Minute
)

type Config struct {
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	OrganizationID string
	AccountsURL    string
	APIURL         string
}

// Client talks to Zoho Inventory. The access token is kept in memory and,
// when a redis client is supplied, shared across processes.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	retrier     *clients.Retrier
	rateLimiter *rate.Limiter
	cache       *redis.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetrier(r *clients.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// WithTokenCache stores access tokens in redis; a nil client is ignored
func WithTokenCache(rdb *redis.Client) Option {
	return func(c *Client) {
		if rdb != nil {
			c.cache = rdb
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.AccountsURL = strings.TrimRight(cfg.AccountsURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retrier:     clients.NewRetrier(nil),
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshToken exchanges the refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", c.cfg.RefreshToken)
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)

	body, err := c.retrier.Send(ctx, c.httpClient, serviceName, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AccountsURL+"/oauth/v2/token", strings.NewReader(data.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if err := tokenResp.validate(); err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	expiresIn := time.Duration(tokenResp.ExpiresIn) * time.Second
	c.mu.Lock()
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(expiresIn)
	c.mu.Unlock()

	if c.cache != nil && expiresIn > tokenLeeway {
		// a cache failure only costs an extra refresh later
		_ = c.cache.Set(ctx, tokenCacheKey, tokenResp.AccessToken, expiresIn-tokenLeeway).Err()
	}
	return tokenResp.AccessToken, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, expiry := c.accessToken, c.tokenExpiry
	c.mu.Unlock()
	if token != "" && time.Now().Before(expiry.Add(-tokenLeeway)) {
		return token, nil
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, tokenCacheKey).Result()
		if err == nil && cached != "" {
			ttl, _ := c.cache.TTL(ctx, tokenCacheKey).Result()
			c.mu.Lock()
			c.accessToken = cached
			c.tokenExpiry = time.Now().Add(ttl + tokenLeeway)
			c.mu.Unlock()
			return cached, nil
		}
	}
	return c.RefreshToken(ctx)
}

func (c *Client) invalidateToken(ctx context.Context) {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
	if c.cache != nil {
		_ = c.cache.Del(ctx, tokenCacheKey).Err()
	}
}

// ListItems fetches one page of inventory items. Items that fail validation
// are returned in ItemsPage.Rejected instead of Items.
func (c *Client) ListItems(ctx context.Context, page, perPage int) (*ItemsPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doRequest(ctx, "/inventory/v1/items", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		envelope
		Items       []json.RawMessage `json:"items"`
		PageContext struct {
			Page        int  `json:"page"`
			PerPage     int  `json:"per_page"`
			HasMorePage bool `json:"has_more_page"`
		} `json:"page_context"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse items response: %w", err)
	}
	if err := resp.envelope.err(); err != nil {
		return nil, err
	}

	result := &ItemsPage{
		Page:    page,
		HasMore: resp.PageContext.HasMorePage,
		Items:   make([]Item, 0, len(resp.Items)),
	}
	for _, raw := range resp.Items {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			result.Rejected = append(result.Rejected, fmt.Errorf("malformed item: %w", err))
			continue
		}
		if err := item.Validate(); err != nil {
			result.Rejected = append(result.Rejected, err)
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// ListCategories returns every category except Zoho's synthetic root
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	body, err := c.doRequest(ctx, "/inventory/v1/categories", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		envelope
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse categories response: %w", err)
	}
	if err := resp.envelope.err(); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		if cat.CategoryID == "" || cat.CategoryID == rootCategoryID || strings.TrimSpace(cat.Name) == "" {
			continue
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("organization_id", c.cfg.OrganizationID)
	fullURL := c.cfg.APIURL + path + "?" + params.Encode()

	body, err := c.send(ctx, fullURL)
	var apiErr *clients.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// token revoked or expired early; refresh once
		c.invalidateToken(ctx)
		body, err = c.send(ctx, fullURL)
	}
	return body, err
}

func (c *Client) send(ctx context.Context, fullURL string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return c.retrier.Send(ctx, c.httpClient, serviceName, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}
