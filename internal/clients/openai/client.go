// Package openai wraps the chat completions endpoint for product
// classification and marketing copy.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"storefront-service/internal/clients"
	"storefront-service/internal/rules"
)

const (
	serviceName    = "OpenAI"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// ErrEmptyCompletion is returned when the model answers with no usable content
var ErrEmptyCompletion = errors.New("empty completion")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
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
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retrier:     clients.NewRetrier(nil),
		rateLimiter: rate.NewLimiter(rate.Limit(3), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify asks the model which regulated categories a product belongs to
func (c *Client) Classify(ctx context.Context, name, description string) (*Classification, error) {
	content, err := c.complete(ctx, classificationPrompt(), productPrompt(name, description), 0)
	if err != nil {
		return nil, err
	}

	var result Classification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	if err := result.normalize(); err != nil {
		return nil, fmt.Errorf("invalid classification: %w", err)
	}
	return &result, nil
}

// GenerateDescription writes storefront copy for a product
func (c *Client) GenerateDescription(ctx context.Context, product ProductInfo) (*GeneratedCopy, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\n", product.Name)
	if product.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", product.Brand)
	}
	if product.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", product.Category)
	}
	if len(product.Materials) > 0 {
		fmt.Fprintf(&b, "Materials: %s\n", strings.Join(product.Materials, ", "))
	}
	if product.Existing != "" {
		fmt.Fprintf(&b, "Current description: %s\n", product.Existing)
	}

	content, err := c.complete(ctx, copywriterPrompt, b.String(), 0.7)
	if err != nil {
		return nil, err
	}

	var out GeneratedCopy
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse generated copy: %w", err)
	}
	if err := out.normalize(); err != nil {
		return nil, fmt.Errorf("invalid generated copy: %w", err)
	}
	return &out, nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.retrier.Send(ctx, c.httpClient, serviceName, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func classificationPrompt() string {
	names := make([]string, 0, len(rules.Categories))
	for _, cr := range rules.Categories {
		names = append(names, cr.Category)
	}
	return fmt.Sprintf(`You classify products sold by a smoking accessories shop.
Regulated categories: %s.
Accessories such as glass pipes, grinders, papers and lighters are not regulated by themselves.
Answer with a JSON object: {"categories": [regulated category names that apply], "isNicotine": bool, "isTobacco": bool, "confidence": number between 0 and 1, "reasoning": short string}.`,
		strings.Join(names, ", "))
}

func productPrompt(name, description string) string {
	if strings.TrimSpace(description) == "" {
		return "Product name: " + name
	}
	return fmt.Sprintf("Product name: %s\nDescription: %s", name, description)
}

const copywriterPrompt = `You write concise, factual product copy for an online smoking accessories store.
Do not make health claims. Do not mention prices.
Answer with a JSON object: {"shortDescription": one sentence under 160 characters, "description": two or three short paragraphs}.`
