package models

// SyncPhase names one Zoho sync step
type SyncPhase string

const (
	SyncPhaseCategories SyncPhase = "categories"
	SyncPhaseProducts   SyncPhase = "products"
	SyncPhaseStock      SyncPhase = "stock"
)

func (p SyncPhase) Valid() bool {
	switch p {
	case SyncPhaseCategories, SyncPhaseProducts, SyncPhaseStock:
		return true
	}
	return false
}

type ZohoSyncRequest struct {
	Limit       int    `json:"limit" binding:"omitempty,min=1"`
	StartFromID string `json:"startFromId"`
	FullSync    bool   `json:"fullSync"`
	// DryRun fetches and counts without writing or enqueueing
	DryRun bool `json:"dryRun"`
}

type SyncStats struct {
	Phase           SyncPhase `json:"phase"`
	Fetched         int       `json:"fetched"`
	Created         int       `json:"created"`
	Updated         int       `json:"updated"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	Enqueued        int       `json:"enqueued"`
	LastProcessedID string    `json:"lastProcessedId,omitempty"`
}

type SyncResponse struct {
	Success bool       `json:"success"`
	DryRun  bool       `json:"dryRun"`
	Stats   *SyncStats `json:"stats"`
	Errors  []string   `json:"errors"`
}

type AirtableSyncRequest struct {
	Limit           int      `json:"limit" binding:"omitempty,min=1"`
	Apply           bool     `json:"apply"`
	Force           bool     `json:"force"`
	Threshold       *float64 `json:"threshold,omitempty" binding:"omitempty,gt=0,lte=1"`
	FilterByFormula string   `json:"filterByFormula"`
}

// ContentSyncResult summarises a matcher run against the external catalog
type ContentSyncResult struct {
	DryRun           bool           `json:"dryRun"`
	InternalCount    int            `json:"internalCount"`
	ExternalCount    int            `json:"externalCount"`
	Matched          int            `json:"matched"`
	Unmatched        int            `json:"unmatched"`
	Skipped          int            `json:"skipped"`
	Applied          int            `json:"applied"`
	AlreadyPopulated int            `json:"alreadyPopulated"`
	Matches          []MatchSummary `json:"matches"`
}

type MatchSummary struct {
	ProductID    string   `json:"productId"`
	ProductName  string   `json:"productName"`
	ExternalID   string   `json:"externalId"`
	ExternalName string   `json:"externalName"`
	Score        float64  `json:"score"`
	MatchedOn    []string `json:"matchedOn"`
}

type AirtableSyncResponse struct {
	Success bool               `json:"success"`
	Results *ContentSyncResult `json:"results"`
	Errors  []string           `json:"errors"`
}
