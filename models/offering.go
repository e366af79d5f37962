package models

import "time"

// Offering represents one public stock offering collected from the schedule
// source. All text fields are kept as scraped; normalization happens in the
// services layer. Offerings are rebuilt on every collection cycle and are
// identified across runs by Name only.
type Offering struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	OfferPrice       string `json:"offer_price"`       // may be "미정" (undetermined)
	PriceBand        string `json:"price_band"`        // desired price band, e.g. "21,000~24,000"
	SubscriptionDate string `json:"subscription_date"` // raw text, e.g. "02.20~02.21"
	ListingDate      string `json:"listing_date"`
	CompetitionRate  string `json:"competition_rate"`
	Source           string `json:"source,omitempty"` // "" for the primary scrape, "DART" for fallback rows
}

// OfferingDetail holds the demand-forecast figures scraped from the offering
// detail page. Empty strings mean the source did not publish the value.
type OfferingDetail struct {
	Name                     string `json:"name"`
	InstitutionalCompetition string `json:"institutional_competition"` // e.g. "1523.4:1"
	LockupRatio              string `json:"lockup_ratio"`
	Underwriter              string `json:"underwriter"`
	TotalShares              string `json:"total_shares"`
	PublicOffering           string `json:"public_offering"`
}

// Disclosure is a single regulatory filing returned by the disclosure source.
type Disclosure struct {
	Title     string `json:"title"`
	Date      string `json:"date"` // YYYYMMDD as published by DART
	ReceiptNo string `json:"receipt_no"`
}

// CompanyDisclosures groups the recent filings of one issuer.
type CompanyDisclosures struct {
	CorpCode    string       `json:"corp_code"`
	CompanyName string       `json:"company_name"`
	Disclosures []Disclosure `json:"disclosures"`
}

// ScheduleRow is one raw row from the schedule source before filtering and
// deduplication. Cells keeps the full cell texts so the deduplicator can run
// its date-pattern acceptance check.
type ScheduleRow struct {
	Cells []string `json:"cells"`
	Name  string   `json:"name"` // link text of the first cell when present
}

// CollectionResult is the outcome of one collection cycle.
type CollectionResult struct {
	Offerings    []Offering `json:"offerings"`
	NewNames     []string   `json:"new_names"` // names absent from the previous cycle
	CollectedAt  time.Time  `json:"collected_at"`
	UsedFallback bool       `json:"used_fallback"`
}
