package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// OraclePayload is the structured analysis shape the grading oracle must
// return. Nothing in it is trusted until ValidateOraclePayload passes.
type OraclePayload struct {
	Grade              string `json:"grade"`
	GradeReason        string `json:"gradeReason"`
	PredictedHighPrice struct {
		Min int64 `json:"min"`
		Max int64 `json:"max"`
	} `json:"predictedHighPrice"`
	PredictedHighPriceReason string   `json:"predictedHighPriceReason"`
	KeyPoints                []string `json:"keyPoints"`
	Recommendation           string   `json:"recommendation"`
	RiskLevel                string   `json:"riskLevel"`
	FinancialSummary         string   `json:"financialSummary"`
}

// GradeModel turns offering signals into an OfferingAnalysis. A validated
// oracle payload wins; anything else falls back to the deterministic
// competition-ratio heuristic.
type GradeModel struct {
	now func() time.Time
}

func NewGradeModel() *GradeModel {
	return &GradeModel{now: time.Now}
}

// ParseCompetitionRatio extracts the numeric part of competition-ratio text
// such as "1523.4:1" or "1,234.5 대 1". Unparsable text yields 0, which the
// fallback grades as the default B.
func ParseCompetitionRatio(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
			continue
		}
		// Commas are thousands grouping, not the end of the number.
		if r == ',' {
			continue
		}
		// Stop at the ratio separator so "1523.4:1" does not read as 1523.41.
		if b.Len() > 0 {
			break
		}
	}
	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}

// FallbackGrade maps an institutional competition ratio onto a grade. The
// thresholds are fixed; zero or unknown ratios default to B.
func FallbackGrade(competitionRatio float64) models.Grade {
	switch {
	case competitionRatio >= 1000:
		return models.GradeAPlus
	case competitionRatio >= 500:
		return models.GradeA
	case competitionRatio >= 200:
		return models.GradeBPlus
	case competitionRatio >= 50:
		return models.GradeB
	case competitionRatio > 0:
		return models.GradeC
	default:
		return models.GradeB
	}
}

// ValidateOraclePayload enforces the payload schema: grade inside the closed
// set, non-negative price bounds in the right order, and a non-empty
// rationale. Free-form model output earns no benefit of the doubt.
func ValidateOraclePayload(payload *OraclePayload) (models.Grade, error) {
	if payload == nil {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			"oracle payload is empty", "grade-model", "ValidateOraclePayload", false, nil,
		)
	}

	grade, err := models.ParseGrade(strings.TrimSpace(payload.Grade))
	if err != nil {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			fmt.Sprintf("grade outside closed set: %q", payload.Grade),
			"grade-model", "ValidateOraclePayload", false, err,
		)
	}

	if payload.PredictedHighPrice.Min < 0 || payload.PredictedHighPrice.Max < 0 {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			"negative predicted price bound", "grade-model", "ValidateOraclePayload", false, nil,
		)
	}
	if payload.PredictedHighPrice.Max > 0 && payload.PredictedHighPrice.Min > payload.PredictedHighPrice.Max {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			"predicted price min exceeds max", "grade-model", "ValidateOraclePayload", false, nil,
		)
	}

	if strings.TrimSpace(payload.GradeReason) == "" {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			"missing grade rationale", "grade-model", "ValidateOraclePayload", false, nil,
		)
	}

	return grade, nil
}

// Analyze assembles the analysis for one offering. payload may be nil (no
// oracle configured or the call failed); an invalid payload degrades the
// same way, with the fallback fact recorded on the result.
func (m *GradeModel) Analyze(offering models.Offering, detail *models.OfferingDetail, payload *OraclePayload) models.OfferingAnalysis {
	if payload != nil {
		if grade, err := ValidateOraclePayload(payload); err == nil {
			return models.OfferingAnalysis{
				Offering:    offering,
				Detail:      detail,
				Grade:       grade,
				GradeInfo:   grade.Descriptor(),
				GradeReason: payload.GradeReason,
				PredictedHighPrice: models.PriceRange{
					Min: payload.PredictedHighPrice.Min,
					Max: payload.PredictedHighPrice.Max,
				},
				KeyPoints:        payload.KeyPoints,
				Recommendation:   payload.Recommendation,
				RiskLevel:        payload.RiskLevel,
				FinancialSummary: payload.FinancialSummary,
				FallbackUsed:     false,
				AnalyzedAt:       m.now(),
			}
		} else {
			logrus.WithFields(logrus.Fields{
				"component": "GradeModel",
				"offering":  offering.Name,
				"error":     err,
			}).Warn("Oracle payload failed validation, using fallback grade")
		}
	}

	return m.fallbackAnalysis(offering, detail)
}

// fallbackAnalysis grades from the institutional competition ratio alone.
func (m *GradeModel) fallbackAnalysis(offering models.Offering, detail *models.OfferingDetail) models.OfferingAnalysis {
	var ratio float64
	if detail != nil {
		ratio = ParseCompetitionRatio(detail.InstitutionalCompetition)
	}
	grade := FallbackGrade(ratio)

	return models.OfferingAnalysis{
		Offering:       offering,
		Detail:         detail,
		Grade:          grade,
		GradeInfo:      grade.Descriptor(),
		GradeReason:    fmt.Sprintf("기관경쟁률 %.1f:1 기준 간이 분석", ratio),
		KeyPoints:      []string{"모델 분석 불가 - 간이 분석 결과"},
		Recommendation: "상세 분석 불가 (모델 미설정 또는 응답 오류)",
		FallbackUsed:   true,
		AnalyzedAt:     m.now(),
	}
}
