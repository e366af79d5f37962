package models

// MilestoneKind distinguishes the three calendar events derived from an
// offering schedule.
type MilestoneKind string

const (
	MilestoneSubscription MilestoneKind = "subscription"
	MilestoneListing      MilestoneKind = "listing"
	MilestoneRefund       MilestoneKind = "refund"
)

// Milestone is one calendar event ready for the sink. StartDate and EndDate
// are YYYY-MM-DD; single-day events repeat the start date.
type Milestone struct {
	Kind        MilestoneKind `json:"kind"`
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
}
