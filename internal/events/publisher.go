package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/models"
)

const (
	StreamName = "STOREFRONT_EVENTS"

	SubjectProductHidden       = "product.hidden"
	SubjectOrderCreated        = "order.created"
	SubjectOrderStatusChanged  = "order.status_changed"
	SubjectComplianceViolation = "compliance.violation"
)

// Event is the envelope for every message on the storefront stream
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type ProductHidden struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type OrderCreated struct {
	OrderID                string   `json:"orderId"`
	OrderNumber            string   `json:"orderNumber"`
	CustomerID             string   `json:"customerId"`
	Total                  float64  `json:"total"`
	ItemCount              int      `json:"itemCount"`
	ShippingState          string   `json:"shippingState"`
	RequiresAdultSignature bool     `json:"requiresAdultSignature"`
	ProductIDs             []string `json:"productIds"`
}

type OrderStatusChanged struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}

type ComplianceViolation struct {
	ProductID     string `json:"productId,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	ViolationType string `json:"violationType"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	State         string `json:"state,omitempty"`
}

// Publisher writes storefront events to JetStream. A nil *Publisher is valid
// and drops every event, so callers work without NATS configured.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	log := logger.WithField("component", "events.publisher")

	nc, err := nats.Connect(natsURL,
		nats.Name("storefront-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"product.>", "order.>", "compliance.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to ensure STOREFRONT_EVENTS stream")
	}

	return &Publisher{nc: nc, js: js, logger: log}, nil
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, data interface{}) error {
	if p == nil || p.js == nil {
		return nil
	}
	event := NewEvent(subject, data)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) PublishProductHidden(ctx context.Context, e ProductHidden) error {
	return p.publish(ctx, SubjectProductHidden, e)
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, SubjectOrderCreated, OrderCreatedFrom(order))
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, SubjectOrderStatusChanged, OrderStatusChanged{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
	})
}

// PublishComplianceViolations sends one message per audit entry
func (p *Publisher) PublishComplianceViolations(ctx context.Context, entries []models.ComplianceAuditLog) error {
	if p == nil {
		return nil
	}
	for _, entry := range entries {
		if err := p.publish(ctx, SubjectComplianceViolation, ViolationFrom(entry)); err != nil {
			return err
		}
	}
	return nil
}

func OrderCreatedFrom(order *models.Order) OrderCreated {
	e := OrderCreated{
		OrderID:                order.ID.String(),
		OrderNumber:            order.OrderNumber,
		CustomerID:             order.CustomerID,
		Total:                  order.Total,
		ShippingState:          order.ShippingState,
		RequiresAdultSignature: order.RequiresAdultSignature,
		ProductIDs:             make([]string, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		e.ItemCount += item.Quantity
		e.ProductIDs = append(e.ProductIDs, item.ProductID.String())
	}
	return e
}

func ViolationFrom(entry models.ComplianceAuditLog) ComplianceViolation {
	v := ComplianceViolation{
		ViolationType: entry.ViolationType,
		Severity:      string(entry.Severity),
		Message:       entry.Message,
	}
	if entry.ProductID != nil {
		v.ProductID = entry.ProductID.String()
	}
	if entry.OrderID != nil {
		v.OrderID = entry.OrderID.String()
	}
	if entry.State != nil {
		v.State = *entry.State
	}
	return v
}

func (p *Publisher) IsConnected() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
