package zoho

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const rootCategoryID = "-1"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	APIDomain   string `json:"api_domain"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error"`
}

func (t tokenResponse) validate() error {
	if t.Error != "" {
		return errors.New(t.Error)
	}
	if t.AccessToken == "" {
		return errors.New("response has no access_token")
	}
	if t.ExpiresIn <= 0 {
		return fmt.Errorf("invalid expires_in %d", t.ExpiresIn)
	}
	return nil
}

// envelope is the status part every Zoho Inventory response carries
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e envelope) err() error {
	if e.Code != 0 {
		return fmt.Errorf("Zoho API error (code %d): %s", e.Code, e.Message)
	}
	return nil
}

// Number accepts a JSON number, a numeric string, an empty string or null
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Item is an inventory item as returned by the items list endpoint
type Item struct {
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	Description    string `json:"description"`
	Rate           Number `json:"rate"`
	StockOnHand    Number `json:"stock_on_hand"`
	AvailableStock Number `json:"available_stock"`
	Status         string `json:"status"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	Brand          string `json:"brand"`
	Manufacturer   string `json:"manufacturer"`
	ImageName      string `json:"image_name"`
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.ItemID) == "" {
		return errors.New("item has no item_id")
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("item %s has no name", i.ItemID)
	}
	if i.Rate.Valid && i.Rate.Value < 0 {
		return fmt.Errorf("item %s has negative rate %.2f", i.ItemID, i.Rate.Value)
	}
	return nil
}

// Stock prefers available stock over stock on hand and never goes below zero
func (i Item) Stock() int {
	v := i.StockOnHand
	if i.AvailableStock.Valid {
		v = i.AvailableStock
	}
	if !v.Valid || v.Value < 0 {
		return 0
	}
	return int(math.Floor(v.Value))
}

func (i Item) Price() float64 {
	if !i.Rate.Valid {
		return 0
	}
	return i.Rate.Value
}

func (i Item) IsActive() bool {
	return strings.EqualFold(i.Status, "active")
}

// BrandName falls back to the manufacturer when no brand is set
func (i Item) BrandName() string {
	if b := strings.TrimSpace(i.Brand); b != "" {
		return b
	}
	return strings.TrimSpace(i.Manufacturer)
}

type Category struct {
	CategoryID       string `json:"category_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	ParentCategoryID string `json:"parent_category_id"`
}

// ItemsPage is one page of the items listing
type ItemsPage struct {
	Page     int
	HasMore  bool
	Items    []Item
	Rejected []error
}
