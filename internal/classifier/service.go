// Package classifier runs the background pipeline that decides whether newly
// imported products may stay visible on the storefront.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"storefront-service/internal/clients"
	"storefront-service/internal/clients/openai"
	"storefront-service/internal/compliance"
	"storefront-service/internal/events"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/internal/rules"
)

// Decision sources
const (
	SourceRules         = "rules"
	SourceLLM           = "llm"
	SourceRulesFallback = "rules_fallback"
)

const historyLimit = 500

var errNoLLM = errors.New("no LLM classifier configured")

// ProductStore is the slice of the products repository the pipeline writes through
type ProductStore interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProductFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	HideProduct(ctx context.Context, id uuid.UUID, reason string) error
	SetClassificationState(ctx context.Context, id uuid.UUID, state models.ClassificationState) error
}

type RuleAssigner interface {
	AssignRule(ctx context.Context, productID uuid.UUID, category, assignedBy string, confidence float64) error
}

// LLM is the model-backed second opinion for products the rules cannot settle
type LLM interface {
	Classify(ctx context.Context, name, description string) (*openai.Classification, error)
}

type HiddenPublisher interface {
	PublishProductHidden(ctx context.Context, e events.ProductHidden) error
}

type Config struct {
	BatchSize    int
	Delay        time.Duration
	RuleCutoff   float64
	HideNicotine bool
	HideTobacco  bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		Delay:        time.Second,
		RuleCutoff:   compliance.DefaultHideThreshold,
		HideNicotine: true,
		HideTobacco:  true,
	}
}

// Decision is the verdict for one product
type Decision struct {
	ProductID      uuid.UUID                  `json:"productId"`
	Name           string                     `json:"name"`
	State          models.ClassificationState `json:"state"`
	Hide           bool                       `json:"hide"`
	Reason         string                     `json:"reason,omitempty"`
	Category       string                     `json:"category,omitempty"`
	Confidence     float64                    `json:"confidence"`
	Source         string                     `json:"source"`
	IsNicotine     bool                       `json:"isNicotine"`
	IsTobacco      bool                       `json:"isTobacco"`
	TriggeredRules []compliance.TriggeredRule `json:"triggeredRules"`
	LLMError       string                     `json:"llmError,omitempty"`
}

// Entry is the latest known state of a product in the pipeline
type Entry struct {
	ProductID uuid.UUID                  `json:"productId"`
	Name      string                     `json:"name,omitempty"`
	State     models.ClassificationState `json:"state"`
	Reason    string                     `json:"reason,omitempty"`
	Source    string                     `json:"source,omitempty"`
	Error     string                     `json:"error,omitempty"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}

type Status struct {
	QueueLength int     `json:"queueLength"`
	Processing  bool    `json:"processing"`
	Processed   int     `json:"processed"`
	Hidden      int     `json:"hidden"`
	Visible     int     `json:"visible"`
	Failed      int     `json:"failed"`
	Recent      []Entry `json:"recent"`
}

// Service owns the classification queue. Construct one per process and call
// Stop on shutdown; queued work is not persisted.
type Service struct {
	cfg       Config
	engine    *compliance.Engine
	products  ProductStore
	assigner  RuleAssigner
	llm       LLM
	publisher HiddenPublisher
	breaker   *clients.CircuitBreaker
	limiter   *rate.Limiter
	logger    *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	queue      []uuid.UUID
	pending    map[uuid.UUID]struct{}
	processing bool
	stats      Status
	history    map[uuid.UUID]Entry
	order      []uuid.UUID
}

// NewService builds the pipeline. llm, assigner and publisher may be nil.
func NewService(cfg Config, engine *compliance.Engine, products ProductStore, assigner RuleAssigner, llm LLM, publisher HiddenPublisher, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.RuleCutoff <= 0 {
		cfg.RuleCutoff = compliance.DefaultHideThreshold
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:       cfg,
		engine:    engine,
		products:  products,
		assigner:  assigner,
		llm:       llm,
		publisher: publisher,
		breaker:   clients.NewCircuitBreaker(5, time.Minute),
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[uuid.UUID]struct{}),
		history:   make(map[uuid.UUID]Entry),
	}
}

// Enqueue adds products that are not already queued or in flight and starts
// the drain loop if it is idle. It returns how many ids were added.
func (s *Service) Enqueue(ids ...uuid.UUID) int {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return 0
	}

	added := 0
	for _, id := range ids {
		if _, ok := s.pending[id]; ok {
			continue
		}
		s.pending[id] = struct{}{}
		s.queue = append(s.queue, id)
		s.remember(Entry{ProductID: id, State: models.ClassificationQueued})
		added++
	}

	start := added > 0 && !s.processing
	if start {
		s.processing = true
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
	if added > 0 {
		s.logger.WithField("added", added).Debug("Products queued for classification")
	}
	return added
}

func (s *Service) drain() {
	defer s.wg.Done()
	s.logger.Info("Classification queue started")

	for {
		batch := s.nextBatch()
		if len(batch) == 0 {
			s.logger.Info("Classification queue drained")
			return
		}

		for i, id := range batch {
			if err := s.limiter.Wait(s.ctx); err != nil {
				s.abandon(batch[i:])
				s.logger.Info("Classification queue stopped")
				return
			}
			if _, err := s.Classify(s.ctx, id); err != nil {
				s.logger.WithError(err).WithField("product_id", id).Warn("Classification failed")
			}
			s.release(id)
		}
	}
}

// nextBatch pops up to BatchSize ids, clearing the processing flag when empty
func (s *Service) nextBatch() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		for _, id := range s.queue {
			delete(s.pending, id)
		}
		s.queue = nil
	}
	if len(s.queue) == 0 {
		s.processing = false
		return nil
	}
	n := s.cfg.BatchSize
	if n > len(s.queue) {
		n = len(s.queue)
	}
	batch := make([]uuid.UUID, n)
	copy(batch, s.queue[:n])
	s.queue = s.queue[n:]
	return batch
}

func (s *Service) release(id uuid.UUID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// abandon drops the rest of the batch and everything still queued
func (s *Service) abandon(rest []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range rest {
		delete(s.pending, id)
	}
	for _, id := range s.queue {
		delete(s.pending, id)
	}
	s.queue = nil
	s.processing = false
}

// Classify runs one product through the pipeline synchronously and applies the result
func (s *Service) Classify(ctx context.Context, id uuid.UUID) (*Decision, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		s.fail(ctx, id, "", err, !errors.Is(err, repository.ErrNotFound))
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}

	analysis := s.engine.Analyze(product.Name, product.DescriptionText())
	if err := s.products.SetClassificationState(ctx, id, models.ClassificationRuleChecked); err != nil {
		s.fail(ctx, id, product.Name, err, false)
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	s.track(Entry{ProductID: id, Name: product.Name, State: models.ClassificationRuleChecked})

	d := s.decide(ctx, product, analysis)
	if d.Source == SourceLLM {
		if err := s.products.SetClassificationState(ctx, id, models.ClassificationAIChecked); err != nil {
			s.fail(ctx, id, product.Name, err, false)
			return nil, fmt.Errorf("failed to update product %s: %w", id, err)
		}
		s.track(Entry{ProductID: id, Name: product.Name, State: models.ClassificationAIChecked, Source: SourceLLM})
	}

	if err := s.apply(ctx, product, d); err != nil {
		s.fail(ctx, id, product.Name, err, false)
		return nil, err
	}
	return d, nil
}

// Evaluate computes the decision for a product without writing anything
func (s *Service) Evaluate(ctx context.Context, product *models.Product) *Decision {
	return s.decide(ctx, product, s.engine.Analyze(product.Name, product.DescriptionText()))
}

func (s *Service) decide(ctx context.Context, product *models.Product, analysis compliance.Analysis) *Decision {
	d := &Decision{
		ProductID:      product.ID,
		Name:           product.Name,
		Category:       analysis.Category,
		Confidence:     analysis.Confidence,
		TriggeredRules: analysis.TriggeredRules,
	}

	if analysis.Confidence >= s.cfg.RuleCutoff {
		d.Hide = true
		d.Source = SourceRules
		d.Reason = fmt.Sprintf("Regulated product: %s (rule confidence %.2f)", analysis.Category, analysis.Confidence)
		return d
	}

	result, err := s.askLLM(ctx, product)
	if err != nil {
		d.Source = SourceRulesFallback
		d.LLMError = err.Error()
		if analysis.Flagged() {
			d.Hide = true
			d.Reason = fmt.Sprintf("Possible %s product pending review (rule confidence %.2f)", analysis.Category, analysis.Confidence)
		}
		return d
	}

	d.Source = SourceLLM
	d.Confidence = result.Confidence
	d.IsNicotine = result.IsNicotine
	d.IsTobacco = result.IsTobacco

	switch {
	case result.IsNicotine && s.cfg.HideNicotine:
		d.Hide = true
		d.Category = rules.CategoryNicotine
		d.Reason = "Nicotine product"
	case result.IsTobacco && s.cfg.HideTobacco:
		d.Hide = true
		d.Category = tobaccoCategory()
		d.Reason = "Tobacco product"
	default:
		for _, name := range result.Categories {
			rule, ok := rules.Lookup(name)
			// Nicotine and tobacco are governed by their own toggles above.
			if !ok || rule.Tobacco {
				continue
			}
			d.Hide = true
			d.Category = rule.Category
			d.Reason = fmt.Sprintf("Regulated product: %s", rule.Category)
			break
		}
	}
	return d
}

func (s *Service) askLLM(ctx context.Context, product *models.Product) (*openai.Classification, error) {
	if s.llm == nil {
		return nil, errNoLLM
	}
	if !s.breaker.Allow() {
		return nil, clients.ErrCircuitOpen
	}
	result, err := s.llm.Classify(ctx, product.Name, product.DescriptionText())
	if err != nil {
		s.breaker.RecordFailure()
		s.logger.WithError(err).WithField("product_id", product.ID).Warn("LLM classification failed, using rule result")
		return nil, err
	}
	s.breaker.RecordSuccess()
	return result, nil
}

func (s *Service) apply(ctx context.Context, product *models.Product, d *Decision) error {
	if d.Source == SourceLLM && (d.IsNicotine != product.NicotineProduct || d.IsTobacco != product.TobaccoProduct) {
		if err := s.products.UpdateProductFields(ctx, product.ID, map[string]interface{}{
			"nicotine_product": d.IsNicotine,
			"tobacco_product":  d.IsTobacco,
		}); err != nil {
			return fmt.Errorf("failed to flag product %s: %w", product.ID, err)
		}
	}

	if !d.Hide {
		if err := s.products.SetClassificationState(ctx, product.ID, models.ClassificationVisible); err != nil {
			return fmt.Errorf("failed to mark product %s visible: %w", product.ID, err)
		}
		d.State = models.ClassificationVisible
		s.finish(Entry{ProductID: product.ID, Name: product.Name, State: d.State, Source: d.Source})
		return nil
	}

	if err := s.products.HideProduct(ctx, product.ID, d.Reason); err != nil {
		return fmt.Errorf("failed to hide product %s: %w", product.ID, err)
	}
	d.State = models.ClassificationHidden

	log := s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"category":   d.Category,
		"source":     d.Source,
	})
	if d.Category != "" && s.assigner != nil {
		if err := s.assigner.AssignRule(ctx, product.ID, d.Category, models.AssignedByClassifier, d.Confidence); err != nil {
			log.WithError(err).Warn("Failed to assign compliance rule")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishProductHidden(ctx, events.ProductHidden{
			ProductID:  product.ID.String(),
			Name:       product.Name,
			Reason:     d.Reason,
			Category:   d.Category,
			Confidence: d.Confidence,
			Source:     d.Source,
		}); err != nil {
			log.WithError(err).Warn("Failed to publish product.hidden")
		}
	}
	log.WithField("reason", d.Reason).Info("Product hidden")

	s.finish(Entry{ProductID: product.ID, Name: product.Name, State: d.State, Reason: d.Reason, Source: d.Source})
	return nil
}

// fail records a failed product; persist marks the failure on the product row
func (s *Service) fail(ctx context.Context, id uuid.UUID, name string, cause error, persist bool) {
	if persist {
		if err := s.products.SetClassificationState(ctx, id, models.ClassificationFailed); err != nil {
			s.logger.WithError(err).WithField("product_id", id).Debug("Could not record failed classification")
		}
	}
	s.finish(Entry{ProductID: id, Name: name, State: models.ClassificationFailed, Error: cause.Error()})
}

func (s *Service) track(e Entry) {
	s.mu.Lock()
	s.remember(e)
	s.mu.Unlock()
}

// finish records a terminal entry and updates the totals
func (s *Service) finish(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Processed++
	switch e.State {
	case models.ClassificationHidden:
		s.stats.Hidden++
	case models.ClassificationVisible:
		s.stats.Visible++
	case models.ClassificationFailed:
		s.stats.Failed++
	}
	s.remember(e)
}

// remember stores the latest entry per product and moves it to the tail of
// order; caller holds mu
func (s *Service) remember(e Entry) {
	e.UpdatedAt = time.Now()
	if _, ok := s.history[e.ProductID]; ok {
		for i, id := range s.order {
			if id == e.ProductID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.order = append(s.order, e.ProductID)
	if len(s.order) > historyLimit {
		delete(s.history, s.order[0])
		s.order = s.order[1:]
	}
	s.history[e.ProductID] = e
}

// Status reports queue depth, totals and the most recent entries, newest first
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.QueueLength = len(s.queue)
	st.Processing = s.processing
	st.Recent = make([]Entry, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		st.Recent = append(st.Recent, s.history[s.order[i]])
	}
	return st
}

// Stop cancels the drain loop and waits for the in-flight product to finish
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

func tobaccoCategory() string {
	for _, cr := range rules.Categories {
		if cr.Tobacco {
			return cr.Category
		}
	}
	return rules.CategoryNicotine
}
