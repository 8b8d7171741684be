package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/clients/zoho"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

// ZohoAPI is the read surface of the inventory system
type ZohoAPI interface {
	ListCategories(ctx context.Context) ([]zoho.Category, error)
	ListItems(ctx context.Context, page, perPage int) (*zoho.ItemsPage, error)
}

// ClassificationQueue accepts products for background classification
type ClassificationQueue interface {
	Enqueue(ids ...uuid.UUID) int
}

// SyncService mirrors Zoho Inventory into the local catalog, one phase at a time
type SyncService struct {
	zoho     ZohoAPI
	products repository.ProductsRepositoryInterface
	queue    ClassificationQueue
	logger   *logrus.Logger
}

// NewSyncService wires the Zoho sync; queue may be nil to skip classification
func NewSyncService(api ZohoAPI, products repository.ProductsRepositoryInterface, queue ClassificationQueue, logger *logrus.Logger) *SyncService {
	return &SyncService{zoho: api, products: products, queue: queue, logger: logger}
}

// Run executes one phase. An upstream failure aborts the phase and is returned
// together with the partial response; per-item failures land in Errors.
func (s *SyncService) Run(ctx context.Context, phase models.SyncPhase, req models.ZohoSyncRequest) (*models.SyncResponse, error) {
	resp := &models.SyncResponse{
		DryRun: req.DryRun,
		Stats:  &models.SyncStats{Phase: phase},
		Errors: []string{},
	}
	log := s.logger.WithFields(logrus.Fields{"phase": phase, "limit": req.Limit, "start_from": req.StartFromID, "dry_run": req.DryRun})
	log.Info("Zoho sync started")

	var err error
	switch phase {
	case models.SyncPhaseCategories:
		err = s.syncCategories(ctx, req, resp)
	case models.SyncPhaseProducts:
		err = s.syncProducts(ctx, req, resp)
	case models.SyncPhaseStock:
		err = s.syncStock(ctx, req, resp)
	default:
		return nil, fmt.Errorf("unknown sync phase %q", phase)
	}
	if err != nil {
		log.WithError(err).Error("Zoho sync aborted")
		return resp, err
	}

	resp.Success = true
	log.WithFields(logrus.Fields{
		"created": resp.Stats.Created,
		"updated": resp.Stats.Updated,
		"failed":  resp.Stats.Failed,
	}).Info("Zoho sync completed")
	return resp, nil
}

// cursor applies startFromId and limit across pages
type cursor struct {
	startFrom string
	started   bool
	limit     int
	processed int
}

func newCursor(req models.ZohoSyncRequest) *cursor {
	return &cursor{startFrom: req.StartFromID, started: req.StartFromID == "", limit: req.Limit}
}

// admit reports whether the id should be processed; ids up to and including
// startFrom are skipped
func (c *cursor) admit(id string) bool {
	if !c.started {
		if id == c.startFrom {
			c.started = true
		}
		return false
	}
	return true
}

func (c *cursor) full() bool {
	return c.limit > 0 && c.processed >= c.limit
}

func (s *SyncService) syncCategories(ctx context.Context, req models.ZohoSyncRequest, resp *models.SyncResponse) error {
	categories, err := s.zoho.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch Zoho categories: %w", err)
	}
	stats := resp.Stats
	stats.Fetched = len(categories)

	cur := newCursor(req)
	for _, c := range categories {
		if !cur.admit(c.CategoryID) {
			stats.Skipped++
			continue
		}
		if cur.full() {
			break
		}
		cur.processed++
		stats.LastProcessedID = c.CategoryID

		var created bool
		var err error
		if req.DryRun {
			created, err = s.categoryMissing(ctx, c.CategoryID)
		} else {
			created, err = s.products.UpsertCategoryByZohoID(ctx, c.CategoryID, strings.TrimSpace(c.Name))
		}
		if err != nil {
			stats.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("category %s (%s): %v", c.CategoryID, c.Name, err))
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}
	return nil
}

func (s *SyncService) syncProducts(ctx context.Context, req models.ZohoSyncRequest, resp *models.SyncResponse) error {
	stats := resp.Stats
	cur := newCursor(req)
	var created []uuid.UUID

	err := s.eachItem(ctx, resp, cur, func(item zoho.Item) {
		var id uuid.UUID
		var isNew bool
		var err error
		if req.DryRun {
			isNew, err = s.itemMissing(ctx, item)
		} else {
			id, isNew, err = s.upsertItem(ctx, item, req.FullSync)
		}
		if err != nil {
			stats.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("item %s (%s): %v", item.ItemID, item.Name, err))
			s.logger.WithError(err).WithField("zoho_item_id", item.ItemID).Warn("Failed to sync Zoho item")
			return
		}
		if isNew {
			stats.Created++
			if id != uuid.Nil {
				created = append(created, id)
			}
		} else {
			stats.Updated++
		}
	})

	// Enqueue whatever was created, even when a later page failed.
	if len(created) > 0 && s.queue != nil {
		stats.Enqueued = s.queue.Enqueue(created...)
	}
	return err
}

func (s *SyncService) syncStock(ctx context.Context, req models.ZohoSyncRequest, resp *models.SyncResponse) error {
	stats := resp.Stats
	return s.eachItem(ctx, resp, newCursor(req), func(item zoho.Item) {
		var found bool
		var err error
		if req.DryRun {
			found, err = s.itemKnown(ctx, item.ItemID)
		} else {
			found, err = s.products.UpdateStockByZohoItemID(ctx, item.ItemID, item.Stock())
		}
		switch {
		case err != nil:
			stats.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("item %s (%s): %v", item.ItemID, item.Name, err))
		case found:
			stats.Updated++
		default:
			stats.Skipped++
		}
	})
}

// eachItem pages through Zoho items, recording rejected rows and honouring the cursor
func (s *SyncService) eachItem(ctx context.Context, resp *models.SyncResponse, cur *cursor, fn func(zoho.Item)) error {
	stats := resp.Stats
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.zoho.ListItems(ctx, page, zoho.MaxPerPage)
		if err != nil {
			return fmt.Errorf("failed to fetch Zoho items page %d: %w", page, err)
		}
		stats.Fetched += len(result.Items) + len(result.Rejected)
		for _, rej := range result.Rejected {
			stats.Failed++
			resp.Errors = append(resp.Errors, rej.Error())
		}

		for _, item := range result.Items {
			if !cur.admit(item.ItemID) {
				stats.Skipped++
				continue
			}
			if cur.full() {
				return nil
			}
			cur.processed++
			stats.LastProcessedID = item.ItemID
			fn(item)
		}

		if !result.HasMore || cur.full() {
			return nil
		}
	}
}

// findItem matches by Zoho item id, then SKU; nil means no local product
func (s *SyncService) findItem(ctx context.Context, item zoho.Item) (*models.Product, error) {
	existing, err := s.products.FindByZohoItemID(ctx, item.ItemID)
	if errors.Is(err, repository.ErrNotFound) && strings.TrimSpace(item.SKU) != "" {
		existing, err = s.products.FindBySKU(ctx, item.SKU)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return existing, err
}

// itemMissing reports whether a products run would create the item
func (s *SyncService) itemMissing(ctx context.Context, item zoho.Item) (bool, error) {
	existing, err := s.findItem(ctx, item)
	return existing == nil && err == nil, err
}

func (s *SyncService) itemKnown(ctx context.Context, zohoItemID string) (bool, error) {
	_, err := s.products.FindByZohoItemID(ctx, zohoItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *SyncService) categoryMissing(ctx context.Context, zohoCategoryID string) (bool, error) {
	_, err := s.products.FindCategoryByZohoID(ctx, zohoCategoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// upsertItem matches by Zoho item id, then SKU. It returns the product id and
// whether the product was created.
func (s *SyncService) upsertItem(ctx context.Context, item zoho.Item, fullSync bool) (uuid.UUID, bool, error) {
	existing, err := s.findItem(ctx, item)
	if err != nil {
		return uuid.Nil, false, err
	}

	if existing == nil {
		product, err := s.newProduct(ctx, item)
		if err != nil {
			return uuid.Nil, false, err
		}
		if err := s.products.CreateProduct(ctx, product); err != nil {
			return uuid.Nil, false, fmt.Errorf("failed to create product: %w", err)
		}
		return product.ID, true, nil
	}

	updates := map[string]interface{}{
		"price":          item.Price(),
		"stock_quantity": item.Stock(),
		"is_active":      item.IsActive(),
	}
	if existing.ZohoItemID == nil || *existing.ZohoItemID != item.ItemID {
		updates["zoho_item_id"] = item.ItemID
	}
	if fullSync {
		updates["name"] = strings.TrimSpace(item.Name)
		if d := strings.TrimSpace(item.Description); d != "" {
			updates["description"] = d
		}
		if brandID, err := s.brandID(ctx, item); err != nil {
			return uuid.Nil, false, err
		} else if brandID != nil {
			updates["brand_id"] = *brandID
		}
		if categoryID := s.categoryID(ctx, item); categoryID != nil {
			updates["category_id"] = *categoryID
		}
	}
	if err := s.products.UpdateProductFields(ctx, existing.ID, updates); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to update product: %w", err)
	}
	return existing.ID, false, nil
}

func (s *SyncService) newProduct(ctx context.Context, item zoho.Item) (*models.Product, error) {
	zohoID := item.ItemID
	queued := models.ClassificationQueued
	product := &models.Product{
		ID:                  uuid.New(),
		Name:                strings.TrimSpace(item.Name),
		SKU:                 strings.TrimSpace(item.SKU),
		Price:               item.Price(),
		StockQuantity:       item.Stock(),
		IsActive:            item.IsActive(),
		IsVisible:           true,
		ZohoItemID:          &zohoID,
		ClassificationState: &queued,
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		product.Description = &d
	}
	brandID, err := s.brandID(ctx, item)
	if err != nil {
		return nil, err
	}
	product.BrandID = brandID
	product.CategoryID = s.categoryID(ctx, item)
	return product, nil
}

func (s *SyncService) brandID(ctx context.Context, item zoho.Item) (*uuid.UUID, error) {
	name := item.BrandName()
	if name == "" {
		return nil, nil
	}
	brand, err := s.products.GetOrCreateBrand(ctx, name)
	if err != nil {
		return nil, err
	}
	return &brand.ID, nil
}

// categoryID resolves the local category mirrored from Zoho; unknown categories are left unset
func (s *SyncService) categoryID(ctx context.Context, item zoho.Item) *uuid.UUID {
	if item.CategoryID == "" {
		return nil
	}
	category, err := s.products.FindCategoryByZohoID(ctx, item.CategoryID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.WithError(err).WithField("zoho_category_id", item.CategoryID).Warn("Category lookup failed")
		}
		return nil
	}
	return &category.ID
}
