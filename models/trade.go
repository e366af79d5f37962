package models

import (
	"time"

	"github.com/google/uuid"
)

// UndatedPeriodKey buckets completed trades whose sell date was never
// recorded. Kept as the literal the reporting sheet historically used.
const UndatedPeriodKey = "미정"

// TradeRecord is one ledger entry for an allocated offering. The ledger is
// append-only: records are written once by the trade endpoint and never
// updated or deleted by this service.
//
// Profit and ReturnRate are convenience columns filled at write time; the
// aggregator recomputes both from prices and quantity and never trusts them.
type TradeRecord struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	SubscriptionDate string    `json:"subscription_date"`
	OfferPrice       int64     `json:"offer_price"`
	Quantity         int64     `json:"quantity"`
	InvestedAmount   int64     `json:"invested_amount"`
	SellPrice        int64     `json:"sell_price"` // 0 means still pending
	SellDate         string    `json:"sell_date"`  // YYYY-MM-DD, empty while pending
	Profit           int64     `json:"profit"`
	ReturnRate       float64   `json:"return_rate"`
	Grade            string    `json:"grade"` // grade at time of trade, raw text
	CreatedAt        time.Time `json:"created_at"`
}

// Completed reports whether the position has been sold.
func (r TradeRecord) Completed() bool {
	return r.SellPrice > 0
}

// PeriodStat is one monthly or yearly rollup row. Period is YYYY-MM for
// monthly rows and YYYY for yearly rows. ReturnRate is pre-formatted with
// two decimals ("0" when nothing was invested) so every renderer shows the
// same figure.
type PeriodStat struct {
	Period     string `json:"period"`
	Invested   int64  `json:"invested"`
	Profit     int64  `json:"profit"`
	ReturnRate string `json:"return_rate"`
	Count      int    `json:"count"`
}

// GradeStat is the per-grade hit-rate rollup.
type GradeStat struct {
	Grade     Grade  `json:"grade"`
	Count     int    `json:"count"`
	AvgReturn string `json:"avg_return"` // unweighted mean of per-trade return rates
	WinRate   string `json:"win_rate"`   // percent of trades with positive return
}

// TotalSummary sums every completed trade in the ledger.
type TotalSummary struct {
	CompletedTrades int    `json:"completed_trades"`
	PendingTrades   int    `json:"pending_trades"`
	TotalInvested   int64  `json:"total_invested"`
	TotalProfit     int64  `json:"total_profit"`
	TotalReturnRate string `json:"total_return_rate"`
}

// ProfitSummary is the full aggregation result, recomputed from the entire
// ledger on every run.
type ProfitSummary struct {
	Monthly      []PeriodStat  `json:"monthly"`
	Yearly       []PeriodStat  `json:"yearly"`
	GradeStats   []GradeStat   `json:"grade_stats"`
	TotalSummary *TotalSummary `json:"total_summary"`
}
