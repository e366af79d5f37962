package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gongmoalim/gongmo-backend/models"
)

// ProfitAggregator recomputes the full profit summary from the trade ledger.
// Every run reads the whole ledger and rebuilds monthly, yearly, per-grade
// and total rollups from scratch; nothing is incrementally maintained, so a
// corrected ledger row is reflected on the next run without migration.
type ProfitAggregator struct{}

func NewProfitAggregator() *ProfitAggregator {
	return &ProfitAggregator{}
}

type periodAccumulator struct {
	invested int64
	profit   int64
	count    int
}

type gradeAccumulator struct {
	count       int
	totalReturn float64
	wins        int
}

// Aggregate builds the summary for a ledger snapshot. Only completed trades
// (sell price recorded) enter the rollups; pending trades are counted in the
// total summary and nowhere else.
//
// The yearly rollup is derived from the monthly rollup rather than from the
// records, so the two can never disagree: summing the monthly rows of a year
// reproduces that year's row exactly, and summing all rows reproduces the
// totals.
func (a *ProfitAggregator) Aggregate(records []models.TradeRecord) *models.ProfitSummary {
	if len(records) == 0 {
		return &models.ProfitSummary{
			Monthly:    []models.PeriodStat{},
			Yearly:     []models.PeriodStat{},
			GradeStats: []models.GradeStat{},
		}
	}

	var completed, pending []models.TradeRecord
	for _, rec := range records {
		if rec.Completed() {
			completed = append(completed, rec)
		} else {
			pending = append(pending, rec)
		}
	}

	monthly := a.aggregateMonthly(completed)
	yearly := a.aggregateYearly(monthly)
	gradeStats := a.aggregateGrades(completed)

	var totalInvested, totalProfit int64
	for _, rec := range completed {
		totalInvested += rec.OfferPrice * rec.Quantity
		totalProfit += (rec.SellPrice - rec.OfferPrice) * rec.Quantity
	}

	summary := &models.ProfitSummary{
		Monthly:    monthly,
		Yearly:     yearly,
		GradeStats: gradeStats,
		TotalSummary: &models.TotalSummary{
			CompletedTrades: len(completed),
			PendingTrades:   len(pending),
			TotalInvested:   totalInvested,
			TotalProfit:     totalProfit,
			TotalReturnRate: formatReturnRate(totalProfit, totalInvested),
		},
	}

	logrus.WithFields(logrus.Fields{
		"component":    "ProfitAggregator",
		"completed":    len(completed),
		"pending":      len(pending),
		"total_return": summary.TotalSummary.TotalReturnRate,
	}).Info("Profit summary aggregated")
	return summary
}

func (a *ProfitAggregator) aggregateMonthly(completed []models.TradeRecord) []models.PeriodStat {
	buckets := make(map[string]*periodAccumulator)
	for _, rec := range completed {
		key := monthKey(rec.SellDate)
		acc := buckets[key]
		if acc == nil {
			acc = &periodAccumulator{}
			buckets[key] = acc
		}
		acc.invested += rec.OfferPrice * rec.Quantity
		acc.profit += (rec.SellPrice - rec.OfferPrice) * rec.Quantity
		acc.count++
	}
	return sortedPeriodStats(buckets)
}

// aggregateYearly rolls monthly rows up by year. The undated bucket carries
// through under its own key instead of being spread across years.
func (a *ProfitAggregator) aggregateYearly(monthly []models.PeriodStat) []models.PeriodStat {
	buckets := make(map[string]*periodAccumulator)
	for _, m := range monthly {
		key := yearKey(m.Period)
		acc := buckets[key]
		if acc == nil {
			acc = &periodAccumulator{}
			buckets[key] = acc
		}
		acc.invested += m.Invested
		acc.profit += m.Profit
		acc.count += m.Count
	}
	return sortedPeriodStats(buckets)
}

// aggregateGrades computes per-grade hit rates over completed trades. Records
// whose stored grade text is not a recognized grade are skipped; the ledger
// endpoint validates grades on write, so these only occur in rows imported
// from older sheets.
func (a *ProfitAggregator) aggregateGrades(completed []models.TradeRecord) []models.GradeStat {
	buckets := make(map[models.Grade]*gradeAccumulator)
	for _, rec := range completed {
		grade, err := models.ParseGrade(rec.Grade)
		if err != nil {
			continue
		}
		acc := buckets[grade]
		if acc == nil {
			acc = &gradeAccumulator{}
			buckets[grade] = acc
		}

		var returnRate float64
		if rec.OfferPrice > 0 {
			returnRate = float64(rec.SellPrice-rec.OfferPrice) / float64(rec.OfferPrice) * 100
		}
		acc.count++
		acc.totalReturn += returnRate
		if returnRate > 0 {
			acc.wins++
		}
	}

	stats := make([]models.GradeStat, 0, len(buckets))
	for _, grade := range models.GradeOrder {
		acc, ok := buckets[grade]
		if !ok {
			continue
		}
		stats = append(stats, models.GradeStat{
			Grade:     grade,
			Count:     acc.count,
			AvgReturn: fmt.Sprintf("%.2f", acc.totalReturn/float64(acc.count)),
			WinRate:   fmt.Sprintf("%.1f", float64(acc.wins)/float64(acc.count)*100),
		})
	}
	return stats
}

func sortedPeriodStats(buckets map[string]*periodAccumulator) []models.PeriodStat {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	// Byte order sorts YYYY-MM keys chronologically and places the undated
	// bucket after every dated one.
	sort.Strings(keys)

	stats := make([]models.PeriodStat, 0, len(keys))
	for _, key := range keys {
		acc := buckets[key]
		stats = append(stats, models.PeriodStat{
			Period:     key,
			Invested:   acc.invested,
			Profit:     acc.profit,
			ReturnRate: formatReturnRate(acc.profit, acc.invested),
			Count:      acc.count,
		})
	}
	return stats
}

func monthKey(sellDate string) string {
	if sellDate == "" {
		return models.UndatedPeriodKey
	}
	if len(sellDate) >= 7 {
		return sellDate[:7]
	}
	return sellDate
}

func yearKey(period string) string {
	if period == models.UndatedPeriodKey || len(period) < 4 {
		return period
	}
	return period[:4]
}

// formatReturnRate renders profit over invested as a percentage with two
// decimals, or the literal "0" when nothing was invested.
func formatReturnRate(profit, invested int64) string {
	if invested <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.2f", float64(profit)/float64(invested)*100)
}

var reportPrinter = message.NewPrinter(language.Korean)

// formatWon renders an amount with thousands separators.
func formatWon(amount int64) string {
	return reportPrinter.Sprintf("%d", amount)
}

// FormatReport renders the summary as the Markdown profit report posted by
// the daily job and the report endpoint.
func (a *ProfitAggregator) FormatReport(summary *models.ProfitSummary) string {
	var lines []string

	lines = append(lines, "# 💹 공모주 투자 수익 리포트\n")

	if ts := summary.TotalSummary; ts != nil {
		lines = append(lines, "## 📊 전체 현황")
		lines = append(lines, fmt.Sprintf("- 완료 거래: **%d건** | 진행 중: %d건", ts.CompletedTrades, ts.PendingTrades))
		lines = append(lines, fmt.Sprintf("- 총 투자금: **%s원**", formatWon(ts.TotalInvested)))
		lines = append(lines, fmt.Sprintf("- 총 수익금: **%s원** (%s%%)\n", formatWon(ts.TotalProfit), ts.TotalReturnRate))
	}

	if len(summary.Monthly) > 0 {
		lines = append(lines, "## 📅 월간 수익")
		lines = append(lines, "| 년월 | 투자금 | 수익금 | 수익률 | 건수 |")
		lines = append(lines, "|------|--------|--------|--------|------|")
		for _, m := range summary.Monthly {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s%% | %d |",
				m.Period, formatWon(m.Invested), formatWon(m.Profit), m.ReturnRate, m.Count))
		}
		lines = append(lines, "")
	}

	if len(summary.Yearly) > 0 {
		lines = append(lines, "## 📆 연간 수익")
		lines = append(lines, "| 년도 | 투자금 | 수익금 | 수익률 | 건수 |")
		lines = append(lines, "|------|--------|--------|--------|------|")
		for _, y := range summary.Yearly {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s%% | %d |",
				y.Period, formatWon(y.Invested), formatWon(y.Profit), y.ReturnRate, y.Count))
		}
		lines = append(lines, "")
	}

	if len(summary.GradeStats) > 0 {
		lines = append(lines, "## 🏆 등급별 적중률")
		lines = append(lines, "| 등급 | 거래수 | 평균수익률 | 승률 |")
		lines = append(lines, "|------|--------|------------|------|")
		for _, gs := range summary.GradeStats {
			lines = append(lines, fmt.Sprintf("| %s | %d | %s%% | %s%% |",
				gs.Grade, gs.Count, gs.AvgReturn, gs.WinRate))
		}
	}

	return strings.Join(lines, "\n")
}
