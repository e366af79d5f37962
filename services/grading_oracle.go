package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// GeminiGradingOracle evaluates offerings with a Gemini model and returns
// the structured payload the grade model validates. Construction fails fast
// when no API key is configured; callers then run with the oracle nil and
// every offering takes the fallback path.
type GeminiGradingOracle struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiGradingOracle(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGradingOracle, error) {
	if apiKey == "" {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryConfiguration, shared.CodeOracleInvalidOutput,
			"Gemini API key not configured", "grading-oracle", "NewGeminiGradingOracle", false, nil,
		)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGradingOracle{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Evaluate implements GradingOracle. The model is instructed to answer pure
// JSON; the response is fence-stripped and unmarshalled but otherwise not
// interpreted here. Schema validation belongs to the grade model.
func (o *GeminiGradingOracle) Evaluate(ctx context.Context, offering models.Offering, detail *models.OfferingDetail, disclosures *models.CompanyDisclosures) (*OraclePayload, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt := buildGradingPrompt(offering, detail, disclosures)

	response, err := o.client.Models.GenerateContent(ctx, o.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryNetwork, shared.CodeOracleInvalidOutput,
			"grading-oracle", "Evaluate", true)
	}

	text := stripJSONFences(response.Text())

	var payload OraclePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "GeminiGradingOracle",
			"offering":  offering.Name,
		}).Warn("Oracle returned non-JSON output")
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeOracleInvalidOutput,
			"oracle output is not valid JSON", "grading-oracle", "Evaluate", false, err,
		)
	}
	return &payload, nil
}

// stripJSONFences removes markdown code fences that generative models wrap
// around JSON despite instructions.
func stripJSONFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func buildGradingPrompt(offering models.Offering, detail *models.OfferingDetail, disclosures *models.CompanyDisclosures) string {
	orDefault := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}

	var b strings.Builder
	b.WriteString("당신은 한국 공모주(IPO) 전문 금융 분석가입니다. 워런 버핏의 가치투자 원칙을 기반으로 분석합니다.\n\n")

	b.WriteString("## 분석 대상 공모주 정보\n\n**기본 정보:**\n")
	fmt.Fprintf(&b, "- 종목명: %s\n", offering.Name)
	fmt.Fprintf(&b, "- 업종: %s\n", orDefault(offering.Category, "미상"))
	fmt.Fprintf(&b, "- 공모가: %s\n", orDefault(offering.OfferPrice, "미정"))
	fmt.Fprintf(&b, "- 희망 공모가 밴드: %s\n", orDefault(offering.PriceBand, "미정"))
	fmt.Fprintf(&b, "- 청약일: %s\n", orDefault(offering.SubscriptionDate, "미정"))
	fmt.Fprintf(&b, "- 상장 예정일: %s\n", orDefault(offering.ListingDate, "미정"))

	b.WriteString("\n**기관 수요예측 결과:**\n")
	if detail != nil {
		fmt.Fprintf(&b, "- 기관경쟁률: %s\n", orDefault(detail.InstitutionalCompetition, "미공개"))
		fmt.Fprintf(&b, "- 의무보유확약 비율: %s\n", orDefault(detail.LockupRatio, "미공개"))
		fmt.Fprintf(&b, "- 주간사: %s\n", orDefault(detail.Underwriter, "미상"))
		fmt.Fprintf(&b, "- 총공모주식수: %s\n", orDefault(detail.TotalShares, "미상"))
		fmt.Fprintf(&b, "- 공모금액: %s\n", orDefault(detail.PublicOffering, "미상"))
	} else {
		b.WriteString("- 미공개\n")
	}

	b.WriteString("\n**공시자료:**\n")
	if disclosures != nil && len(disclosures.Disclosures) > 0 {
		for _, d := range disclosures.Disclosures {
			fmt.Fprintf(&b, "- %s (%s)\n", d.Title, d.Date)
		}
	} else {
		b.WriteString("공시자료 미확인\n")
	}

	b.WriteString(`
## 분석 요청

다음 항목을 분석하고 JSON으로만 응답해 주세요:

1. **등급 산출** (S, A+, A, B+, B, C, D, E 중 선택)
   - S: 압도적 성장성 + 기관경쟁률 1000:1 이상 + 확약비율 높음 → 예상 수익률 +100%↑
   - A+: 강한 펀더멘털 + 기관경쟁률 500:1↑ → +50~100%
   - A: 양호한 재무 + 적정 공모가 → +30~50%
   - B+: 평균 이상 + 일부 리스크 → +15~30%
   - B: 평균적 수준 → +0~15%
   - C: 재무 불안요소 → ±0%
   - D: 고평가 우려 → -10~0%
   - E: 심각한 리스크 → -10%↓

2. **상장시 예측 최고가** (원 단위, 범위로 제시)
3. **핵심 분석 포인트** (3가지)
4. **투자 추천 한줄평**

JSON 형식:
{
  "grade": "등급",
  "gradeReason": "등급 산출 근거 (2줄)",
  "predictedHighPrice": { "min": 숫자, "max": 숫자 },
  "predictedHighPriceReason": "예측 근거",
  "keyPoints": ["포인트1", "포인트2", "포인트3"],
  "recommendation": "투자 추천 한줄평",
  "riskLevel": "상/중/하",
  "financialSummary": "재무 요약 (매출, 영업이익, 부채비율 등)"
}`)

	return b.String()
}
