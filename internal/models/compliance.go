package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Severity grades a compliance violation
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Violation types written to the audit log
const (
	ViolationStateRestricted  = "state_restricted"
	ViolationMissingLabTest   = "missing_lab_test"
	ViolationMissingBatch     = "missing_batch_number"
	ViolationExpiredProduct   = "expired_product"
	ViolationExpiringSoon     = "expiring_soon"
	ViolationRegulatedVisible = "regulated_product_visible"
	ViolationAgeRequirement   = "age_requirement"
	ViolationQuantityLimit    = "quantity_limit"
)

// Assignment sources
const (
	AssignedByClassifier = "classifier"
	AssignedByAdmin      = "admin"
	AssignedBySync       = "sync"
)

// ShippingRestrictions is stored as JSONB on the compliance rule
type ShippingRestrictions struct {
	AdultSignatureRequired bool     `json:"adultSignatureRequired"`
	PACTAct                bool     `json:"pactAct"`
	ProhibitedCarriers     []string `json:"prohibitedCarriers,omitempty"`
	DomesticOnly           bool     `json:"domesticOnly"`
	MaxQuantityPerOrder    int      `json:"maxQuantityPerOrder,omitempty"`
}

// ComplianceRule is a regulated product category with its restrictions
type ComplianceRule struct {
	ID                    uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Category              string         `json:"category" gorm:"not null;uniqueIndex"`
	SubstanceType         string         `json:"substanceType"`
	RestrictedStates      pq.StringArray `json:"restrictedStates" gorm:"type:text[]"`
	MinimumAge            int            `json:"minimumAge" gorm:"default:21"`
	RequiresLabTesting    bool           `json:"requiresLabTesting"`
	RequiresBatchTracking bool           `json:"requiresBatchTracking"`
	WarningLabels         pq.StringArray `json:"warningLabels" gorm:"type:text[]"`
	ShippingRestrictions  datatypes.JSON `json:"shippingRestrictions" gorm:"type:jsonb"`
	IsActive              bool           `json:"isActive" gorm:"default:true"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// Shipping decodes the JSONB shipping restrictions; malformed data yields zero restrictions
func (r *ComplianceRule) Shipping() ShippingRestrictions {
	var s ShippingRestrictions
	if len(r.ShippingRestrictions) > 0 {
		_ = json.Unmarshal(r.ShippingRestrictions, &s)
	}
	return s
}

// RestrictsState reports whether the rule forbids shipping to the given state code
func (r *ComplianceRule) RestrictsState(state string) bool {
	for _, s := range r.RestrictedStates {
		if s == state {
			return true
		}
	}
	return false
}

// ProductCompliance links a product to a compliance rule
type ProductCompliance struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID  uuid.UUID       `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_product_rule"`
	RuleID     uuid.UUID       `json:"ruleId" gorm:"type:uuid;not null;uniqueIndex:idx_product_rule"`
	Rule       *ComplianceRule `json:"rule,omitempty" gorm:"foreignKey:RuleID"`
	AssignedBy string          `json:"assignedBy"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ComplianceAuditLog is an append-only record of every detected violation
type ComplianceAuditLog struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID     *uuid.UUID `json:"productId,omitempty" gorm:"type:uuid;index"`
	OrderID       *uuid.UUID `json:"orderId,omitempty" gorm:"type:uuid;index"`
	RuleID        *uuid.UUID `json:"ruleId,omitempty" gorm:"type:uuid"`
	ViolationType string     `json:"violationType" gorm:"not null;index"`
	Severity      Severity   `json:"severity" gorm:"not null"`
	Message       string     `json:"message"`
	State         *string    `json:"state,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ComplianceViolation is a single finding returned to callers
type ComplianceViolation struct {
	Type     string     `json:"type"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Category string     `json:"category,omitempty"`
	RuleID   *uuid.UUID `json:"ruleId,omitempty"`
}

type StateComplianceResult struct {
	ProductID  uuid.UUID             `json:"productId"`
	State      string                `json:"state"`
	Allowed    bool                  `json:"allowed"`
	Violations []ComplianceViolation `json:"violations"`
}

type ProductAuditReport struct {
	ProductID  uuid.UUID             `json:"productId"`
	Compliant  bool                  `json:"compliant"`
	Categories []string              `json:"categories"`
	Violations []ComplianceViolation `json:"violations"`
	AuditedAt  time.Time             `json:"auditedAt"`
}

// OrderComplianceItem is one checkout line evaluated for compliance
type OrderComplianceItem struct {
	ProductID   uuid.UUID `json:"productId" binding:"required"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
}

type OrderComplianceRequest struct {
	CustomerAge   int                   `json:"customerAge" binding:"required,min=0"`
	ShippingState string                `json:"shippingState" binding:"required,len=2"`
	Items         []OrderComplianceItem `json:"items" binding:"required,min=1,dive"`
	OrderID       *uuid.UUID            `json:"orderId,omitempty"`
}

type OrderComplianceResult struct {
	IsCompliant            bool     `json:"isCompliant"`
	Violations             []string `json:"violations"`
	RequiredWarnings       []string `json:"requiredWarnings"`
	RequiresAdultSignature bool     `json:"requiresAdultSignature"`
}

func (ComplianceRule) TableName() string {
	return "compliance_rules"
}

func (ProductCompliance) TableName() string {
	return "product_compliance"
}

func (ComplianceAuditLog) TableName() string {
	return "compliance_audit_log"
}

type AnalyzeProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AssignComplianceRequest struct {
	Category   string  `json:"category" binding:"required"`
	Confidence float64 `json:"confidence" binding:"omitempty,gte=0,lte=1"`
}
