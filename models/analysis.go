package models

import (
	"fmt"
	"time"
)

// Grade is the closed set of investment grades. The zero value is not a
// valid grade; use ParseGrade to construct one from text.
type Grade string

const (
	GradeS     Grade = "S"
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeE     Grade = "E"
)

// GradeOrder is the canonical rendering order, best to worst. Aggregation
// output and reports iterate this slice so grade rows always appear in the
// same sequence.
var GradeOrder = []Grade{GradeS, GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC, GradeD, GradeE}

// GradeDescriptor is the static presentation contract for a grade. Clients
// render against these values; they are never computed.
type GradeDescriptor struct {
	Label          string `json:"label"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	Description    string `json:"description"`
	ExpectedReturn string `json:"expected_return"`
}

var gradeDescriptors = map[Grade]GradeDescriptor{
	GradeS:     {Label: "S", Color: "#FFD700", Icon: "🌟", Description: "압도적 성장성 + 높은 기관경쟁률", ExpectedReturn: "+100% 이상"},
	GradeAPlus: {Label: "A+", Color: "#FFA500", Icon: "⭐", Description: "강한 펀더멘털 + 기관 관심 높음", ExpectedReturn: "+50~100%"},
	GradeA:     {Label: "A", Color: "#00C853", Icon: "✅", Description: "양호한 재무 + 적정 공모가", ExpectedReturn: "+30~50%"},
	GradeBPlus: {Label: "B+", Color: "#2979FF", Icon: "🔵", Description: "평균 이상 + 일부 리스크", ExpectedReturn: "+15~30%"},
	GradeB:     {Label: "B", Color: "#9E9E9E", Icon: "⚪", Description: "평균적 수준", ExpectedReturn: "+0~15%"},
	GradeC:     {Label: "C", Color: "#FFD600", Icon: "🟡", Description: "재무 불안 요소 존재", ExpectedReturn: "±0% (보합~소폭↑)"},
	GradeD:     {Label: "D", Color: "#FF6D00", Icon: "🟠", Description: "고평가 우려 + 낮은 기관경쟁률", ExpectedReturn: "-10~0%"},
	GradeE:     {Label: "E", Color: "#D50000", Icon: "🔴", Description: "심각한 리스크 (적자, 과대 공모가)", ExpectedReturn: "-10% 이상 하락"},
}

// ParseGrade validates text against the closed grade set.
func ParseGrade(text string) (Grade, error) {
	g := Grade(text)
	if _, ok := gradeDescriptors[g]; !ok {
		return "", fmt.Errorf("unknown grade %q", text)
	}
	return g, nil
}

// Descriptor returns the static descriptor for a grade. Grades only come
// from ParseGrade or the typed constants, so the lookup cannot miss; a miss
// would mean a corrupted value and panics loudly instead of rendering blanks.
func (g Grade) Descriptor() GradeDescriptor {
	d, ok := gradeDescriptors[g]
	if !ok {
		panic(fmt.Sprintf("models: grade %q outside closed set", string(g)))
	}
	return d
}

// IsValid reports whether g belongs to the closed grade set.
func (g Grade) IsValid() bool {
	_, ok := gradeDescriptors[g]
	return ok
}

// rank positions a grade in GradeOrder; lower is better.
func (g Grade) rank() int {
	for i, o := range GradeOrder {
		if o == g {
			return i
		}
	}
	return len(GradeOrder)
}

// BetterThan reports whether g ranks strictly above other.
func (g Grade) BetterThan(other Grade) bool {
	return g.rank() < other.rank()
}

// PriceRange is a predicted listing-day high range in won. Zero values mean
// the bound is unknown.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// OfferingAnalysis is an Offering plus its derived grade. Produced once per
// offering per analysis pass and immutable afterwards.
type OfferingAnalysis struct {
	Offering Offering        `json:"offering"`
	Detail   *OfferingDetail `json:"detail,omitempty"`

	Grade              Grade           `json:"grade"`
	GradeInfo          GradeDescriptor `json:"grade_info"`
	GradeReason        string          `json:"grade_reason"`
	PredictedHighPrice PriceRange      `json:"predicted_high_price"`
	KeyPoints          []string        `json:"key_points"`
	Recommendation     string          `json:"recommendation"`
	RiskLevel          string          `json:"risk_level"`
	FinancialSummary   string          `json:"financial_summary"`

	// FallbackUsed records that the grade came from the deterministic
	// heuristic rather than the oracle.
	FallbackUsed bool      `json:"fallback_used"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}
