package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/clients/airtable"
	"storefront-service/internal/matching"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

// AirtableAPI is the read surface of the external content table
type AirtableAPI interface {
	ListRecords(ctx context.Context, opts airtable.ListOptions) (*airtable.ListResult, error)
}

type ContentSyncOptions struct {
	Limit           int
	Apply           bool
	Force           bool
	Threshold       float64
	FilterByFormula string
}

// ContentSyncOutcome is the summary plus the raw matcher result for reports
type ContentSyncOutcome struct {
	Summary *models.ContentSyncResult
	Match   matching.Result
	Errors  []string
}

// ContentSyncService fills missing product images and copy from Airtable
type ContentSyncService struct {
	airtable         AirtableAPI
	products         repository.ProductsRepositoryInterface
	defaultThreshold float64
	logger           *logrus.Logger
}

func NewContentSyncService(api AirtableAPI, products repository.ProductsRepositoryInterface, defaultThreshold float64, logger *logrus.Logger) *ContentSyncService {
	return &ContentSyncService{
		airtable:         api,
		products:         products,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

// Run matches products missing content against Airtable. Nothing is written
// unless opts.Apply is set.
func (s *ContentSyncService) Run(ctx context.Context, opts ContentSyncOptions) (*ContentSyncOutcome, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	products, err := s.products.ListProductsMissingContent(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load products missing content: %w", err)
	}

	listing, err := s.airtable.ListRecords(ctx, airtable.ListOptions{FilterByFormula: opts.FilterByFormula})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Airtable records: %w", err)
	}

	out := &ContentSyncOutcome{Errors: []string{}}
	for _, rej := range listing.Rejected {
		out.Errors = append(out.Errors, rej.Error())
	}

	byID := make(map[string]*models.Product, len(products))
	internal := make([]matching.Record, 0, len(products))
	for i := range products {
		p := &products[i]
		byID[p.ID.String()] = p
		internal = append(internal, matching.Record{ID: p.ID.String(), Name: p.Name, SKU: p.SKU})
	}
	records := make(map[string]airtable.Record, len(listing.Records))
	external := make([]matching.Record, 0, len(listing.Records))
	for _, rec := range listing.Records {
		records[rec.ID] = rec
		external = append(external, matching.Record{ID: rec.ID, Name: rec.Fields.Name, SKU: rec.Fields.SKU})
	}

	out.Match = matching.NewMatcher(matching.Config{Threshold: threshold}).Match(internal, external)
	summary := &models.ContentSyncResult{
		DryRun:        !opts.Apply,
		InternalCount: len(internal),
		ExternalCount: len(external),
		Matched:       len(out.Match.Matches),
		Unmatched:     len(out.Match.Unmatched),
		Skipped:       out.Match.Skipped,
		Matches:       make([]models.MatchSummary, 0, len(out.Match.Matches)),
	}
	out.Summary = summary

	for _, m := range out.Match.Matches {
		summary.Matches = append(summary.Matches, models.MatchSummary{
			ProductID:    m.Internal.ID,
			ProductName:  m.Internal.Name,
			ExternalID:   m.External.ID,
			ExternalName: m.External.Name,
			Score:        m.Score,
			MatchedOn:    m.Signals,
		})

		product := byID[m.Internal.ID]
		updates := ContentUpdates(product, records[m.External.ID], opts.Force)
		if len(updates) == 0 {
			summary.AlreadyPopulated++
			continue
		}
		if !opts.Apply {
			continue
		}
		if err := s.products.UpdateProductFields(ctx, product.ID, updates); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("product %s (%s): %v", product.ID, product.Name, err))
			s.logger.WithError(err).WithField("product_id", product.ID).Warn("Failed to apply Airtable content")
			continue
		}
		summary.Applied++
	}

	s.logger.WithFields(logrus.Fields{
		"dry_run":   summary.DryRun,
		"internal":  summary.InternalCount,
		"external":  summary.ExternalCount,
		"matched":   summary.Matched,
		"applied":   summary.Applied,
		"populated": summary.AlreadyPopulated,
	}).Info("Airtable content sync finished")
	return out, nil
}

// ContentUpdates lists the columns a record would change on a product. Empty
// fields are filled; populated ones are overwritten only with force, and
// unchanged values are never rewritten.
func ContentUpdates(p *models.Product, rec airtable.Record, force bool) map[string]interface{} {
	updates := map[string]interface{}{}

	if img := rec.PrimaryImage(); img != "" && (force || !p.HasImage()) && deref(p.ImageURL) != img {
		updates["image_url"] = img
		updates["image_urls"] = pq.StringArray(rec.ImageURLs())
	}
	if d := strings.TrimSpace(rec.Fields.Description); d != "" && (force || !p.HasDescription()) && deref(p.Description) != d {
		updates["description"] = d
	}
	if sd := strings.TrimSpace(rec.Fields.ShortDescription); sd != "" && (force || strings.TrimSpace(deref(p.ShortDescription)) == "") && deref(p.ShortDescription) != sd {
		updates["short_description"] = sd
	}
	if len(updates) > 0 || deref(p.AirtableRecordID) != rec.ID {
		updates["airtable_record_id"] = rec.ID
	}
	if len(updates) == 0 {
		return nil
	}
	return updates
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
