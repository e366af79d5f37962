package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/gongmoalim/gongmo-backend/models"
)

const (
	refundBusinessDays  = 2
	milestoneDateLayout = "2006-01-02"
)

// MilestonePlanner derives the calendar milestones for an analyzed offering:
// the subscription window, the listing day, and the estimated refund day two
// business days after subscription closes. Offerings whose dates fail to
// parse simply contribute fewer milestones.
type MilestonePlanner struct {
	normalizer *DateNormalizer
}

func NewMilestonePlanner(normalizer *DateNormalizer) *MilestonePlanner {
	return &MilestonePlanner{normalizer: normalizer}
}

// Plan returns zero to three milestones for one analysis. No milestone is an
// error condition; unscheduled offerings legitimately produce none.
func (p *MilestonePlanner) Plan(analysis models.OfferingAnalysis) []models.Milestone {
	var milestones []models.Milestone

	offering := analysis.Offering
	grade := analysis.Grade
	icon := analysis.GradeInfo.Icon

	subStart, subEnd := p.normalizer.ParseOfferingDateRange(offering.SubscriptionDate)
	if subStart != nil {
		end := subStart
		if subEnd != nil {
			end = subEnd
		}
		milestones = append(milestones, models.Milestone{
			Kind:        models.MilestoneSubscription,
			Summary:     fmt.Sprintf("📋 [%s] 공모주 청약 (등급: %s%s)", offering.Name, icon, grade),
			Description: buildMilestoneDescription(analysis, "청약"),
			StartDate:   subStart.Format(milestoneDateLayout),
			EndDate:     end.Format(milestoneDateLayout),
		})

		refund := p.normalizer.AddBusinessDays(*end, refundBusinessDays)
		milestones = append(milestones, models.Milestone{
			Kind:        models.MilestoneRefund,
			Summary:     fmt.Sprintf("💰 [%s] 환불일", offering.Name),
			Description: fmt.Sprintf("공모주 청약 환불 예정일\n등급: %s", grade),
			StartDate:   refund.Format(milestoneDateLayout),
			EndDate:     refund.Format(milestoneDateLayout),
		})
	}

	listStart, listEnd := p.normalizer.ParseOfferingDateRange(offering.ListingDate)
	if listStart != nil {
		end := listStart
		if listEnd != nil {
			end = listEnd
		}
		milestones = append(milestones, models.Milestone{
			Kind:        models.MilestoneListing,
			Summary:     fmt.Sprintf("🚀 [%s] 상장일 (예측 최고가: %s원)", offering.Name, predictedMaxText(analysis.PredictedHighPrice)),
			Description: buildMilestoneDescription(analysis, "상장"),
			StartDate:   listStart.Format(milestoneDateLayout),
			EndDate:     end.Format(milestoneDateLayout),
		})
	}

	return milestones
}

func predictedMaxText(price models.PriceRange) string {
	if price.Max <= 0 {
		return "미정"
	}
	return formatWon(price.Max)
}

func buildMilestoneDescription(analysis models.OfferingAnalysis, eventType string) string {
	offering := analysis.Offering
	orDefault := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("═══ %s 공모주 %s 정보 ═══\n", offering.Name, eventType))
	lines = append(lines, fmt.Sprintf("📌 업종: %s", orDefault(offering.Category, "미상")))
	lines = append(lines, fmt.Sprintf("💰 공모가: %s", orDefault(offering.OfferPrice, "미정")))
	lines = append(lines, fmt.Sprintf("📊 희망 공모가 밴드: %s", orDefault(offering.PriceBand, "미정")))

	if d := analysis.Detail; d != nil {
		lines = append(lines, fmt.Sprintf("\n🏢 기관경쟁률: %s", orDefault(d.InstitutionalCompetition, "미공개")))
		lines = append(lines, fmt.Sprintf("🔒 의무보유확약: %s", orDefault(d.LockupRatio, "미공개")))
		lines = append(lines, fmt.Sprintf("📝 주간사: %s", orDefault(d.Underwriter, "미상")))
	}

	lines = append(lines, "\n═══ AI 분석 결과 ═══")
	lines = append(lines, fmt.Sprintf("🏆 등급: %s %s", analysis.GradeInfo.Icon, analysis.Grade))
	lines = append(lines, fmt.Sprintf("📈 예상 수익률: %s", analysis.GradeInfo.ExpectedReturn))

	if analysis.PredictedHighPrice.Max > 0 {
		lines = append(lines, fmt.Sprintf("🎯 예측 최고가: %s원 ~ %s원",
			formatWon(analysis.PredictedHighPrice.Min), formatWon(analysis.PredictedHighPrice.Max)))
	}

	if analysis.Recommendation != "" {
		lines = append(lines, fmt.Sprintf("\n💡 추천: %s", analysis.Recommendation))
	}

	if len(analysis.KeyPoints) > 0 {
		lines = append(lines, "\n📋 핵심 포인트:")
		for i, point := range analysis.KeyPoints {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, point))
		}
	}

	return strings.Join(lines, "\n")
}

// IsSubscribableTomorrow reports whether the offering's subscription window
// starts exactly one day after the given date. The daily job uses this to
// pick tomorrow's subscriptions for the reminder notice.
func (p *MilestonePlanner) IsSubscribableTomorrow(offering models.Offering, today time.Time) bool {
	start := p.normalizer.ParseOfferingDate(offering.SubscriptionDate)
	if start == nil {
		return false
	}
	tomorrow := today.AddDate(0, 0, 1)
	return start.Year() == tomorrow.Year() && start.YearDay() == tomorrow.YearDay()
}
