package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/clients/openai"
	"storefront-service/internal/repository"
)

// CopyWriter generates storefront copy for a product
type CopyWriter interface {
	GenerateDescription(ctx context.Context, product openai.ProductInfo) (*openai.GeneratedCopy, error)
}

type DescriptionResult struct {
	ProductID        uuid.UUID `json:"productId"`
	ShortDescription string    `json:"shortDescription"`
	Description      string    `json:"description"`
	Updated          []string  `json:"updated"`
}

type DescriptionService struct {
	products repository.ProductsRepositoryInterface
	writer   CopyWriter
	logger   *logrus.Logger
}

func NewDescriptionService(products repository.ProductsRepositoryInterface, writer CopyWriter, logger *logrus.Logger) *DescriptionService {
	return &DescriptionService{products: products, writer: writer, logger: logger}
}

// Generate fills empty description fields from the LLM; force overwrites both
func (s *DescriptionService) Generate(ctx context.Context, productID uuid.UUID, force bool) (*DescriptionResult, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	result := &DescriptionResult{
		ProductID:        product.ID,
		ShortDescription: deref(product.ShortDescription),
		Description:      deref(product.Description),
		Updated:          []string{},
	}
	needShort := force || strings.TrimSpace(result.ShortDescription) == ""
	needLong := force || strings.TrimSpace(result.Description) == ""
	if !needShort && !needLong {
		return result, nil
	}

	generated, err := s.writer.GenerateDescription(ctx, openai.ProductInfo{
		Name:      product.Name,
		Brand:     product.BrandName(),
		Category:  product.CategoryName(),
		Materials: product.Materials,
		Existing:  result.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate description: %w", err)
	}

	updates := map[string]interface{}{}
	if needShort {
		updates["short_description"] = generated.ShortDescription
		result.ShortDescription = generated.ShortDescription
		result.Updated = append(result.Updated, "shortDescription")
	}
	if needLong {
		updates["description"] = generated.Description
		result.Description = generated.Description
		result.Updated = append(result.Updated, "description")
	}
	if err := s.products.UpdateProductFields(ctx, product.ID, updates); err != nil {
		return nil, fmt.Errorf("failed to save description: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"updated":    result.Updated,
	}).Info("Product description generated")
	return result, nil
}
