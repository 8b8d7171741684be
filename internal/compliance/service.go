package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/internal/rules"
)

// expiringSoonWindow is how far ahead an expiration date raises a low-severity warning
const expiringSoonWindow = 30 * 24 * time.Hour

// ViolationPublisher receives violations after they are written to the audit log
type ViolationPublisher interface {
	PublishComplianceViolations(ctx context.Context, entries []models.ComplianceAuditLog) error
}

type Service struct {
	repo      repository.ComplianceRepositoryInterface
	engine    *Engine
	publisher ViolationPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService wires the compliance service; publisher may be nil
func NewService(repo repository.ComplianceRepositoryInterface, engine *Engine, publisher ViolationPublisher, logger *logrus.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// Analyze runs the pure rule-based classifier
func (s *Service) Analyze(productName, description string) Analysis {
	return s.engine.Analyze(productName, description)
}

// RuleFromTable converts a static table row into its persisted form
func RuleFromTable(cr rules.CategoryRule) models.ComplianceRule {
	shipping, _ := json.Marshal(cr.Shipping)
	return models.ComplianceRule{
		Category:              cr.Category,
		SubstanceType:         cr.SubstanceType,
		RestrictedStates:      append([]string{}, cr.RestrictedStates...),
		MinimumAge:            cr.MinimumAge,
		RequiresLabTesting:    cr.RequiresLabTesting,
		RequiresBatchTracking: cr.RequiresBatchTracking,
		WarningLabels:         append([]string{}, cr.WarningLabels...),
		ShippingRestrictions:  datatypes.JSON(shipping),
		IsActive:              true,
	}
}

// SeedRules upserts every category of the static table
func (s *Service) SeedRules(ctx context.Context) (int, error) {
	seeded := 0
	for _, cr := range rules.Categories {
		rule := RuleFromTable(cr)
		if err := s.repo.UpsertRule(ctx, &rule); err != nil {
			return seeded, fmt.Errorf("failed to seed rule %s: %w", cr.Category, err)
		}
		seeded++
	}
	s.logger.WithField("rules", seeded).Info("Compliance rules seeded")
	return seeded, nil
}

func (s *Service) ListRules(ctx context.Context) ([]models.ComplianceRule, error) {
	return s.repo.ListRules(ctx)
}

// AssignRule links a product to the rule for a category
func (s *Service) AssignRule(ctx context.Context, productID uuid.UUID, category, assignedBy string, confidence float64) error {
	rule, err := s.repo.GetRuleByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("compliance rule %q is not seeded: %w", category, err)
		}
		return err
	}
	return s.repo.AssignRule(ctx, &models.ProductCompliance{
		ProductID:  productID,
		RuleID:     rule.ID,
		AssignedBy: assignedBy,
		Confidence: confidence,
	})
}

// CheckStateCompliance reports whether a product may ship to the given state
func (s *Service) CheckStateCompliance(ctx context.Context, productID uuid.UUID, state string) (*models.StateComplianceResult, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.GetProductRules(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load compliance rules: %w", err)
	}

	result := &models.StateComplianceResult{
		ProductID:  productID,
		State:      state,
		Allowed:    true,
		Violations: []models.ComplianceViolation{},
	}
	var entries []models.ComplianceAuditLog
	for i := range assigned {
		rule := &assigned[i]
		if !rule.RestrictsState(state) {
			continue
		}
		v := models.ComplianceViolation{
			Type:     models.ViolationStateRestricted,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%s cannot be shipped to %s", product.Name, state),
			Category: rule.Category,
			RuleID:   &rule.ID,
		}
		result.Violations = append(result.Violations, v)
		entries = append(entries, auditEntry(&productID, nil, &state, v))
	}
	result.Allowed = len(result.Violations) == 0

	if err := s.record(ctx, entries); err != nil {
		return nil, err
	}
	return result, nil
}

// AuditProduct checks a product's tracking fields against its assigned rules
// and records every violation.
func (s *Service) AuditProduct(ctx context.Context, productID uuid.UUID) (*models.ProductAuditReport, error) {
	report, entries, err := s.auditProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, entries); err != nil {
		return nil, err
	}
	return report, nil
}

// PreviewAudit runs the same checks as AuditProduct without writing the audit log
func (s *Service) PreviewAudit(ctx context.Context, productID uuid.UUID) (*models.ProductAuditReport, error) {
	report, _, err := s.auditProduct(ctx, productID)
	return report, err
}

// AuditRegulatedProducts audits every product with a compliance assignment,
// hidden ones included. Violations are recorded only when record is set.
func (s *Service) AuditRegulatedProducts(ctx context.Context, limit int, record bool) ([]*models.ProductAuditReport, error) {
	ids, err := s.repo.ListRegulatedProductIDs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list regulated products: %w", err)
	}
	audit := s.PreviewAudit
	if record {
		audit = s.AuditProduct
	}
	reports := make([]*models.ProductAuditReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := audit(ctx, id)
		if err != nil {
			return reports, fmt.Errorf("failed to audit product %s: %w", id, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *Service) auditProduct(ctx context.Context, productID uuid.UUID) (*models.ProductAuditReport, []models.ComplianceAuditLog, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	assigned, err := s.repo.GetProductRules(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load compliance rules: %w", err)
	}

	now := s.now()
	report := &models.ProductAuditReport{
		ProductID:  productID,
		Categories: []string{},
		Violations: []models.ComplianceViolation{},
		AuditedAt:  now,
	}

	for i := range assigned {
		rule := &assigned[i]
		report.Categories = append(report.Categories, rule.Category)

		if rule.RequiresLabTesting && isBlank(product.LabTestURL) {
			report.Violations = append(report.Violations, models.ComplianceViolation{
				Type:     models.ViolationMissingLabTest,
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("%s requires a lab test (COA) for %s products", product.Name, rule.Category),
				Category: rule.Category,
				RuleID:   &rule.ID,
			})
		}
		if rule.RequiresBatchTracking && isBlank(product.BatchNumber) {
			report.Violations = append(report.Violations, models.ComplianceViolation{
				Type:     models.ViolationMissingBatch,
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("%s requires a batch number for %s products", product.Name, rule.Category),
				Category: rule.Category,
				RuleID:   &rule.ID,
			})
		}
	}

	if product.ExpirationDate != nil {
		switch {
		case product.ExpirationDate.Before(now):
			report.Violations = append(report.Violations, models.ComplianceViolation{
				Type:     models.ViolationExpiredProduct,
				Severity: models.SeverityCritical,
				Message:  fmt.Sprintf("%s expired on %s", product.Name, product.ExpirationDate.Format("2006-01-02")),
			})
		case product.ExpirationDate.Before(now.Add(expiringSoonWindow)):
			report.Violations = append(report.Violations, models.ComplianceViolation{
				Type:     models.ViolationExpiringSoon,
				Severity: models.SeverityLow,
				Message:  fmt.Sprintf("%s expires on %s", product.Name, product.ExpirationDate.Format("2006-01-02")),
			})
		}
	}

	if len(assigned) > 0 && product.IsVisible {
		report.Violations = append(report.Violations, models.ComplianceViolation{
			Type:     models.ViolationRegulatedVisible,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("%s is regulated (%s) but visible on the public storefront", product.Name, strings.Join(report.Categories, ", ")),
		})
	}

	report.Compliant = len(report.Violations) == 0

	entries := make([]models.ComplianceAuditLog, 0, len(report.Violations))
	for _, v := range report.Violations {
		entries = append(entries, auditEntry(&productID, nil, nil, v))
	}
	return report, entries, nil
}

// ValidateOrderCompliance evaluates every line item for age, state and quantity
// limits and records the violations against the order.
func (s *Service) ValidateOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error) {
	result, entries, err := s.evaluateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, entries); err != nil {
		return nil, err
	}
	return result, nil
}

// PrecheckOrderCompliance is ValidateOrderCompliance without the audit log,
// for carts that have not been submitted.
func (s *Service) PrecheckOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error) {
	result, _, err := s.evaluateOrder(ctx, req)
	return result, err
}

func (s *Service) evaluateOrder(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, []models.ComplianceAuditLog, error) {
	state := strings.ToUpper(strings.TrimSpace(req.ShippingState))
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	rulesByProduct, err := s.repo.GetRulesForProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load compliance rules: %w", err)
	}

	names, flagged, err := s.productFacts(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	result := &models.OrderComplianceResult{
		IsCompliant:      true,
		Violations:       []string{},
		RequiredWarnings: []string{},
	}
	seenWarning := make(map[string]bool)
	var entries []models.ComplianceAuditLog

	for _, item := range req.Items {
		productID := item.ProductID
		name := names[productID]
		effective := rulesByProduct[productID]
		if flagged[productID] && !hasCategory(effective, rules.CategoryNicotine) {
			if cr, ok := rules.Lookup(rules.CategoryNicotine); ok {
				effective = append(effective, RuleFromTable(*cr))
			}
		}

		for i := range effective {
			rule := &effective[i]
			var ruleID *uuid.UUID
			if rule.ID != uuid.Nil {
				ruleID = &rule.ID
			}

			if rule.MinimumAge > 0 && req.CustomerAge < rule.MinimumAge {
				msg := fmt.Sprintf("Customer must be %d+ to purchase %s", rule.MinimumAge, name)
				result.Violations = append(result.Violations, msg)
				entries = append(entries, auditEntry(&productID, req.OrderID, &state, models.ComplianceViolation{
					Type: models.ViolationAgeRequirement, Severity: models.SeverityCritical, Message: msg, Category: rule.Category, RuleID: ruleID,
				}))
			}
			if rule.RestrictsState(state) {
				msg := fmt.Sprintf("%s cannot be shipped to %s", name, state)
				result.Violations = append(result.Violations, msg)
				entries = append(entries, auditEntry(&productID, req.OrderID, &state, models.ComplianceViolation{
					Type: models.ViolationStateRestricted, Severity: models.SeverityHigh, Message: msg, Category: rule.Category, RuleID: ruleID,
				}))
			}

			shipping := rule.Shipping()
			if shipping.MaxQuantityPerOrder > 0 && item.Quantity > shipping.MaxQuantityPerOrder {
				msg := fmt.Sprintf("%s is limited to %d per order", name, shipping.MaxQuantityPerOrder)
				result.Violations = append(result.Violations, msg)
				entries = append(entries, auditEntry(&productID, req.OrderID, &state, models.ComplianceViolation{
					Type: models.ViolationQuantityLimit, Severity: models.SeverityMedium, Message: msg, Category: rule.Category, RuleID: ruleID,
				}))
			}
			if shipping.AdultSignatureRequired || shipping.PACTAct {
				result.RequiresAdultSignature = true
			}
			for _, w := range rule.WarningLabels {
				if !seenWarning[w] {
					seenWarning[w] = true
					result.RequiredWarnings = append(result.RequiredWarnings, w)
				}
			}
		}
	}

	result.IsCompliant = len(result.Violations) == 0
	return result, entries, nil
}

// productFacts resolves display names and nicotine/tobacco flags for line items
func (s *Service) productFacts(ctx context.Context, items []models.OrderComplianceItem) (map[uuid.UUID]string, map[uuid.UUID]bool, error) {
	names := make(map[uuid.UUID]string, len(items))
	flagged := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		names[item.ProductID] = item.ProductName
		ids = append(ids, item.ProductID)
	}

	products, err := s.repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}
	for _, p := range products {
		if names[p.ID] == "" {
			names[p.ID] = p.Name
		}
		flagged[p.ID] = p.NicotineProduct || p.TobaccoProduct
	}
	for id, name := range names {
		if name == "" {
			names[id] = id.String()
		}
	}
	return names, flagged, nil
}

// record appends violations to the audit log and publishes them
func (s *Service) record(ctx context.Context, entries []models.ComplianceAuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.repo.AppendAuditLogs(ctx, entries); err != nil {
		return fmt.Errorf("failed to write compliance audit log: %w", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishComplianceViolations(ctx, entries); err != nil {
			s.logger.WithError(err).Warn("Failed to publish compliance violations")
		}
	}
	return nil
}

func (s *Service) ListAuditLogs(ctx context.Context, productID uuid.UUID, limit int) ([]models.ComplianceAuditLog, error) {
	return s.repo.ListAuditLogs(ctx, productID, limit)
}

func auditEntry(productID, orderID *uuid.UUID, state *string, v models.ComplianceViolation) models.ComplianceAuditLog {
	return models.ComplianceAuditLog{
		ProductID:     productID,
		OrderID:       orderID,
		RuleID:        v.RuleID,
		ViolationType: v.Type,
		Severity:      v.Severity,
		Message:       v.Message,
		State:         state,
	}
}

func hasCategory(list []models.ComplianceRule, category string) bool {
	for _, r := range list {
		if strings.EqualFold(r.Category, category) {
			return true
		}
	}
	return false
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
