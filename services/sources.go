package services

import (
	"context"

	"github.com/gongmoalim/gongmo-backend/models"
)

// ScheduleSource produces raw schedule rows for one collection cycle. A
// failed or empty fetch makes the pipeline fall back to the secondary
// source; it never aborts the run.
type ScheduleSource interface {
	Fetch(ctx context.Context) ([]models.ScheduleRow, error)
}

// DetailSource looks up the demand-forecast detail for one offering. A nil
// result with nil error means the source has no page for the name yet.
type DetailSource interface {
	FetchDetail(ctx context.Context, name string) (*models.OfferingDetail, error)
}

// DisclosureSource lists recent regulatory filings for an issuer. nil, nil
// means the issuer could not be resolved.
type DisclosureSource interface {
	FetchDisclosures(ctx context.Context, companyName string) (*models.CompanyDisclosures, error)
}

// GradingOracle evaluates one offering and returns a structured analysis
// payload. The payload is validated by the grade model before any field is
// trusted; an error or invalid payload triggers the deterministic fallback.
type GradingOracle interface {
	Evaluate(ctx context.Context, offering models.Offering, detail *models.OfferingDetail, disclosures *models.CompanyDisclosures) (*OraclePayload, error)
}

// LedgerStore reads the append-only trade ledger and persists aggregation
// snapshots. The core never updates or deletes ledger rows.
type LedgerStore interface {
	ReadAll(ctx context.Context) ([]models.TradeRecord, error)
	Append(ctx context.Context, record *models.TradeRecord) error
	SaveSummary(ctx context.Context, summary *models.ProfitSummary) error
}

// CalendarSink receives derived milestones. Duplicate-event prevention is
// the sink's responsibility, not the planner's.
type CalendarSink interface {
	CreateEvent(ctx context.Context, milestone models.Milestone) error
}
