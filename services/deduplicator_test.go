package services

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gongmoalim/gongmo-backend/models"
)

func TestValidOfferingName(t *testing.T) {
	deduplicator := NewScheduleDeduplicator()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"hangul issuer", "삼성전자", true},
		{"mixed issuer", "ABC바이오", true},
		{"two runes is minimum", "가나", true},
		{"single rune too short", "가", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"footer text", "Copyright 2024", false},
		{"community menu", "38커뮤니티", false},
		{"search chrome", "종목 검색", false},
		{"otc section", "비상장 주식", false},
		{"market section", "장외 시세", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deduplicator.ValidOfferingName(tt.input))
		})
	}

	// Length bounds are counted in runes, not bytes.
	long := ""
	for i := 0; i < 31; i++ {
		long += "가"
	}
	assert.False(t, deduplicator.ValidOfferingName(long))
	assert.True(t, deduplicator.ValidOfferingName(long[:30*3])) // 30 runes
}

func TestRowLooksLikeOffering(t *testing.T) {
	deduplicator := NewScheduleDeduplicator()

	offer := models.ScheduleRow{Cells: []string{"한빛반도체", "반도체", "21,000", "19,000~21,000", "02.20~02.21", "03.05"}}
	assert.True(t, deduplicator.RowLooksLikeOffering(offer))

	tooFewCells := models.ScheduleRow{Cells: []string{"한빛반도체", "02.20~02.21"}}
	assert.False(t, deduplicator.RowLooksLikeOffering(tooFewCells))

	noDateCell := models.ScheduleRow{Cells: []string{"메뉴", "공지", "이벤트", "안내", "바로가기"}}
	assert.False(t, deduplicator.RowLooksLikeOffering(noDateCell))

	dashDates := models.ScheduleRow{Cells: []string{"한빛반도체", "반도체", "미정", "미정", "2026-02-20", ""}}
	assert.True(t, deduplicator.RowLooksLikeOffering(dashDates))
}

func TestCanonicalizeMapsColumnsAndFilters(t *testing.T) {
	deduplicator := NewScheduleDeduplicator()

	rows := []models.ScheduleRow{
		{Cells: []string{"종목명", "업종", "공모가", "밴드", "청약일", "상장일"}}, // header, no date cell
		{Name: "한빛반도체", Cells: []string{"한빛반도체(주)", "반도체", "21,000", "19,000~21,000", "02.20~02.21", "03.05", "1523.4:1"}},
		{Cells: []string{"Copyright 2024", "", "", "", "02.20", ""}}, // denylisted name
	}

	offerings := deduplicator.Canonicalize(rows)
	require.Len(t, offerings, 1)

	o := offerings[0]
	assert.Equal(t, "한빛반도체", o.Name) // link text wins over cell text
	assert.Equal(t, "반도체", o.Category)
	assert.Equal(t, "21,000", o.OfferPrice)
	assert.Equal(t, "19,000~21,000", o.PriceBand)
	assert.Equal(t, "02.20~02.21", o.SubscriptionDate)
	assert.Equal(t, "03.05", o.ListingDate)
	assert.Equal(t, "1523.4:1", o.CompetitionRate)
}

func TestDeduplicateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	deduplicator := NewScheduleDeduplicator()

	nameGen := gen.OneConstOf("한빛반도체", "서울바이오", "미래로봇", "가온에너지", "큰숲소프트")

	offeringsGen := gen.SliceOf(nameGen.Map(func(name string) models.Offering {
		return models.Offering{Name: name}
	}))

	properties.Property("output names are unique", prop.ForAll(
		func(offerings []models.Offering) bool {
			seen := make(map[string]bool)
			for _, o := range deduplicator.Deduplicate(offerings) {
				if seen[o.Name] {
					return false
				}
				seen[o.Name] = true
			}
			return true
		},
		offeringsGen,
	))

	properties.Property("first occurrence survives in input order", prop.ForAll(
		func(offerings []models.Offering) bool {
			result := deduplicator.Deduplicate(offerings)
			idx := 0
			seen := make(map[string]bool)
			for _, o := range offerings {
				if seen[o.Name] {
					continue
				}
				seen[o.Name] = true
				if idx >= len(result) || result[idx].Name != o.Name {
					return false
				}
				idx++
			}
			return idx == len(result)
		},
		offeringsGen,
	))

	properties.Property("deduplication is idempotent", prop.ForAll(
		func(offerings []models.Offering) bool {
			once := deduplicator.Deduplicate(offerings)
			twice := deduplicator.Deduplicate(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		offeringsGen,
	))

	properties.TestingRun(t)
}

func TestDeduplicateKeepsFirstOccurrenceData(t *testing.T) {
	deduplicator := NewScheduleDeduplicator()

	offerings := []models.Offering{
		{Name: "한빛반도체", OfferPrice: "21,000"},
		{Name: "한빛반도체", OfferPrice: "99,000"},
		{Name: "서울바이오", OfferPrice: "8,500"},
	}

	result := deduplicator.Deduplicate(offerings)
	require.Len(t, result, 2)
	assert.Equal(t, "21,000", result[0].OfferPrice)
	assert.Equal(t, "서울바이오", result[1].Name)
}

func TestCanonicalizeDeduplicatesAcrossSections(t *testing.T) {
	deduplicator := NewScheduleDeduplicator()

	// The schedule page repeats the same issuer in its upcoming and ongoing
	// sections; only the first row may survive.
	var rows []models.ScheduleRow
	for i := 0; i < 3; i++ {
		rows = append(rows, models.ScheduleRow{
			Name:  "한빛반도체",
			Cells: []string{"한빛반도체", "반도체", fmt.Sprintf("%d1,000", i+1), "", "02.20~02.21", "03.05"},
		})
	}

	offerings := deduplicator.Canonicalize(rows)
	require.Len(t, offerings, 1)
	assert.Equal(t, "11,000", offerings[0].OfferPrice)
}
