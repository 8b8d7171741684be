package openai

import (
	"errors"
	"fmt"
	"strings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Classification is the model's structured verdict on a product
type Classification struct {
	Categories []string `json:"categories"`
	IsNicotine bool     `json:"isNicotine"`
	IsTobacco  bool     `json:"isTobacco"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

func (c *Classification) normalize() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range", c.Confidence)
	}
	categories := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			categories = append(categories, cat)
		}
	}
	c.Categories = categories
	c.Reasoning = strings.TrimSpace(c.Reasoning)
	return nil
}

// ProductInfo is the context given to the copywriter prompt
type ProductInfo struct {
	Name      string
	Brand     string
	Category  string
	Materials []string
	Existing  string
}

type GeneratedCopy struct {
	ShortDescription string `json:"shortDescription"`
	Description      string `json:"description"`
}

const maxShortDescription = 300

func (g *GeneratedCopy) normalize() error {
	g.ShortDescription = strings.TrimSpace(g.ShortDescription)
	g.Description = strings.TrimSpace(g.Description)
	if g.Description == "" {
		return errors.New("description is empty")
	}
	if g.ShortDescription == "" {
		return errors.New("short description is empty")
	}
	if r := []rune(g.ShortDescription); len(r) > maxShortDescription {
		g.ShortDescription = string(r[:maxShortDescription])
	}
	return nil
}
