package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-service/internal/models"
)

// ComplianceRepositoryInterface is the persistence surface of the compliance engine
type ComplianceRepositoryInterface interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error)
	ListRules(ctx context.Context) ([]models.ComplianceRule, error)
	GetRuleByCategory(ctx context.Context, category string) (*models.ComplianceRule, error)
	UpsertRule(ctx context.Context, rule *models.ComplianceRule) error
	GetProductRules(ctx context.Context, productID uuid.UUID) ([]models.ComplianceRule, error)
	GetRulesForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.ComplianceRule, error)
	AssignRule(ctx context.Context, link *models.ProductCompliance) error
	ListRegulatedProductIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	AppendAuditLogs(ctx context.Context, entries []models.ComplianceAuditLog) error
	ListAuditLogs(ctx context.Context, productID uuid.UUID, limit int) ([]models.ComplianceAuditLog, error)
}

type ComplianceRepository struct {
	db *gorm.DB
}

var _ ComplianceRepositoryInterface = (*ComplianceRepository)(nil)

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

func (r *ComplianceRepository) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ComplianceRepository) GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(productIDs) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error
	return products, err
}

func (r *ComplianceRepository) ListRules(ctx context.Context) ([]models.ComplianceRule, error) {
	var rules []models.ComplianceRule
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("category ASC").Find(&rules).Error
	return rules, err
}

func (r *ComplianceRepository) GetRuleByCategory(ctx context.Context, category string) (*models.ComplianceRule, error) {
	var rule models.ComplianceRule
	err := r.db.WithContext(ctx).Where("category = ? AND is_active = ?", category, true).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// UpsertRule inserts the rule or overwrites the existing row for its category
func (r *ComplianceRepository) UpsertRule(ctx context.Context, rule *models.ComplianceRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"substance_type", "restricted_states", "minimum_age", "requires_lab_testing",
			"requires_batch_tracking", "warning_labels", "shipping_restrictions", "is_active", "updated_at",
		}),
	}).Create(rule).Error
}

// GetProductRules returns the active rules assigned to a product
func (r *ComplianceRepository) GetProductRules(ctx context.Context, productID uuid.UUID) ([]models.ComplianceRule, error) {
	var rules []models.ComplianceRule
	err := r.db.WithContext(ctx).
		Joins("JOIN product_compliance pc ON pc.rule_id = compliance_rules.id").
		Where("pc.product_id = ? AND compliance_rules.is_active = ?", productID, true).
		Find(&rules).Error
	return rules, err
}

// GetRulesForProducts batches rule lookup for checkout validation
func (r *ComplianceRepository) GetRulesForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.ComplianceRule, error) {
	result := make(map[uuid.UUID][]models.ComplianceRule)
	if len(productIDs) == 0 {
		return result, nil
	}

	var links []models.ProductCompliance
	err := r.db.WithContext(ctx).
		Preload("Rule", "is_active = ?", true).
		Where("product_id IN ?", productIDs).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if link.Rule == nil {
			continue
		}
		result[link.ProductID] = append(result[link.ProductID], *link.Rule)
	}
	return result, nil
}

// AssignRule links a product to a rule; an existing link keeps its original source
func (r *ComplianceRepository) AssignRule(ctx context.Context, link *models.ProductCompliance) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	link.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "rule_id"}},
		DoNothing: true,
	}).Create(link).Error
}

// ListRegulatedProductIDs returns products carrying at least one compliance assignment
func (r *ComplianceRepository) ListRegulatedProductIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).Model(&models.ProductCompliance{}).
		Distinct("product_id").
		Order("product_id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("product_id", &ids).Error
	return ids, err
}

// AppendAuditLogs writes violations in one batch; the log is append-only
func (r *ComplianceRepository) AppendAuditLogs(ctx context.Context, entries []models.ComplianceAuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
		entries[i].CreatedAt = now
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *ComplianceRepository) ListAuditLogs(ctx context.Context, productID uuid.UUID, limit int) ([]models.ComplianceAuditLog, error) {
	var entries []models.ComplianceAuditLog
	query := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}
