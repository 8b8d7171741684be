package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ClassificationState tracks where a product sits in the background classifier
type ClassificationState string

const (
	ClassificationQueued      ClassificationState = "queued"
	ClassificationRuleChecked ClassificationState = "rule_checked"
	ClassificationAIChecked   ClassificationState = "ai_checked"
	ClassificationHidden      ClassificationState = "hidden"
	ClassificationVisible     ClassificationState = "visible"
	ClassificationFailed      ClassificationState = "failed"
)

// IsTerminal reports whether the classifier is done with the product
func (s ClassificationState) IsTerminal() bool {
	return s == ClassificationHidden || s == ClassificationVisible || s == ClassificationFailed
}

type Brand struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	Slug      string    `json:"slug" gorm:"index"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	IsActive  bool      `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Category struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name           string     `json:"name" gorm:"not null"`
	Slug           string     `json:"slug" gorm:"index"`
	Description    *string    `json:"description,omitempty"`
	ParentID       *uuid.UUID `json:"parentId,omitempty" gorm:"type:uuid"`
	ZohoCategoryID *string    `json:"zohoCategoryId,omitempty" gorm:"uniqueIndex"`
	IsActive       bool       `json:"isActive" gorm:"default:true"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Product is the authoritative internal catalog record
type Product struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name             string         `json:"name" gorm:"not null;index"`
	Slug             string         `json:"slug" gorm:"index"`
	SKU              string         `json:"sku" gorm:"index"`
	Description      *string        `json:"description,omitempty"`
	ShortDescription *string        `json:"shortDescription,omitempty"`
	Price            float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	CompareAtPrice   *float64       `json:"compareAtPrice,omitempty" gorm:"type:decimal(10,2)"`
	StockQuantity    int            `json:"stockQuantity" gorm:"default:0"`
	BrandID          *uuid.UUID     `json:"brandId,omitempty" gorm:"type:uuid;index"`
	Brand            *Brand         `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	CategoryID       *uuid.UUID     `json:"categoryId,omitempty" gorm:"type:uuid;index"`
	Category         *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ImageURL         *string        `json:"imageUrl,omitempty"`
	ImageURLs        pq.StringArray `json:"imageUrls,omitempty" gorm:"type:text[]"`
	IsActive         bool           `json:"isActive" gorm:"default:true;index"`
	IsFeatured       bool           `json:"isFeatured" gorm:"default:false"`
	IsVisible        bool           `json:"isVisible" gorm:"default:true;index"`
	HiddenReason     *string        `json:"hiddenReason,omitempty"`
	HiddenAt         *time.Time     `json:"hiddenAt,omitempty"`
	NicotineProduct  bool           `json:"nicotineProduct" gorm:"default:false"`
	TobaccoProduct   bool           `json:"tobaccoProduct" gorm:"default:false"`
	VIPExclusive     bool           `json:"vipExclusive" gorm:"column:vip_exclusive;default:false;index"`
	Attributes       datatypes.JSON `json:"attributes,omitempty" gorm:"type:jsonb"`
	Specifications   datatypes.JSON `json:"specifications,omitempty" gorm:"type:jsonb"`
	Tags             pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	Materials        pq.StringArray `json:"materials,omitempty" gorm:"type:text[]"`

	// Compliance tracking
	LabTestURL     *string    `json:"labTestUrl,omitempty"`
	BatchNumber    *string    `json:"batchNumber,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	// Classification
	ClassificationState *ClassificationState `json:"classificationState,omitempty"`
	ClassifiedAt        *time.Time           `json:"classifiedAt,omitempty"`

	// External references
	ZohoItemID       *string `json:"zohoItemId,omitempty" gorm:"uniqueIndex"`
	AirtableRecordID *string `json:"airtableRecordId,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DescriptionText returns the long description, falling back to the short one
func (p *Product) DescriptionText() string {
	if p.Description != nil && *p.Description != "" {
		return *p.Description
	}
	if p.ShortDescription != nil {
		return *p.ShortDescription
	}
	return ""
}

// HasImage reports whether the product already carries a primary image
func (p *Product) HasImage() bool {
	return p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) != ""
}

// HasDescription reports whether the product already carries a description
func (p *Product) HasDescription() bool {
	return p.Description != nil && strings.TrimSpace(*p.Description) != ""
}

// IsPurchasable reports whether a storefront customer can buy the product
func (p *Product) IsPurchasable() bool {
	return p.IsActive && p.IsVisible && p.StockQuantity > 0
}

// BrandName returns the loaded brand name or empty
func (p *Product) BrandName() string {
	if p.Brand != nil {
		return p.Brand.Name
	}
	return ""
}

// CategoryName returns the loaded category name or empty
func (p *Product) CategoryName() string {
	if p.Category != nil {
		return p.Category.Name
	}
	return ""
}

// ProductFilter holds storefront listing filters
type ProductFilter struct {
	CategoryID *uuid.UUID
	BrandID    *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	Search     string
	VIPOnly    bool
	SortBy     string
	Page       int
	Limit      int
}

// CreateProductRequest is the admin payload for a VIP-exclusive product
type CreateProductRequest struct {
	Name             string     `json:"name" binding:"required,min=2,max=255"`
	SKU              string     `json:"sku" binding:"required"`
	Description      *string    `json:"description,omitempty"`
	ShortDescription *string    `json:"shortDescription,omitempty"`
	Price            float64    `json:"price" binding:"required,gt=0"`
	CompareAtPrice   *float64   `json:"compareAtPrice,omitempty" binding:"omitempty,gt=0"`
	StockQuantity    int        `json:"stockQuantity" binding:"min=0"`
	BrandName        string     `json:"brandName,omitempty"`
	CategoryID       *uuid.UUID `json:"categoryId,omitempty"`
	ImageURL         *string    `json:"imageUrl,omitempty" binding:"omitempty,url"`
	Tags             []string   `json:"tags,omitempty"`
	Materials        []string   `json:"materials,omitempty"`
}

// SearchSuggestions is the autocomplete payload for the storefront search box
type SearchSuggestions struct {
	Query      string              `json:"query"`
	Products   []ProductSuggestion `json:"products"`
	Brands     []string            `json:"brands"`
	Categories []string            `json:"categories"`
}

type ProductSuggestion struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	SKU      string    `json:"sku"`
	Price    float64   `json:"price"`
	ImageURL *string   `json:"imageUrl,omitempty"`
}

func (Brand) TableName() string {
	return "brands"
}

func (Category) TableName() string {
	return "categories"
}

func (Product) TableName() string {
	return "products"
}

// EnqueueClassificationRequest selects products for the background classifier;
// either explicit ids or the never-classified backlog
type EnqueueClassificationRequest struct {
	ProductIDs   []uuid.UUID `json:"productIds"`
	Unclassified bool        `json:"unclassified"`
	Limit        int         `json:"limit" binding:"omitempty,min=1,max=1000"`
}

type GenerateDescriptionRequest struct {
	Force bool `json:"force"`
}
