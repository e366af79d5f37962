package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/services"
)

// ProfitReportJob reaggregates the trade ledger and refreshes the summary
// snapshot tables. The rendered report is logged; delivery channels read the
// snapshots or hit the report endpoint.
type ProfitReportJob struct {
	Ledger     services.LedgerStore
	Aggregator *services.ProfitAggregator
}

func NewProfitReportJob(ledger services.LedgerStore, aggregator *services.ProfitAggregator) *ProfitReportJob {
	return &ProfitReportJob{Ledger: ledger, Aggregator: aggregator}
}

func (j *ProfitReportJob) Run() {
	logrus.Info("Starting Profit Report Job")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := j.Ledger.ReadAll(ctx)
	if err != nil {
		logrus.Errorf("Failed to run Profit Report Job: %v", err)
		return
	}

	summary := j.Aggregator.Aggregate(records)

	if err := j.Ledger.SaveSummary(ctx, summary); err != nil {
		logrus.Errorf("Failed to persist profit summary: %v", err)
		// Aggregation still succeeded; keep going and log the report.
	}

	if ts := summary.TotalSummary; ts != nil {
		logrus.WithFields(logrus.Fields{
			"completed_trades":  ts.CompletedTrades,
			"pending_trades":    ts.PendingTrades,
			"total_invested":    ts.TotalInvested,
			"total_profit":      ts.TotalProfit,
			"total_return_rate": ts.TotalReturnRate,
		}).Info("Profit Report Job completed")
	} else {
		logrus.Info("Profit Report Job completed: ledger is empty")
	}
}
