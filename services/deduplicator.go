package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gongmoalim/gongmo-backend/models"
)

// datePattern matches a date-like cell: 2-4 digit groups separated by
// ./-/ with an optional day group ("02.20", "2026-02-20", "26.02").
var datePattern = regexp.MustCompile(`\d{2,4}[.\-/]\d{2}[.\-/]?\d{0,2}`)

// nameDenylist rejects navigation and chrome text that leaks into the first
// cell of scraped rows.
var nameDenylist = []string{
	"Copyright",
	"38커뮤",
	"검색",
	"비상장",
	"장외",
	"시세",
}

const (
	minNameLength = 2
	maxNameLength = 30
	minRowCells   = 5
)

// ScheduleDeduplicator filters scrape noise out of raw schedule rows and
// collapses duplicates into a canonical, order-preserving offering list.
type ScheduleDeduplicator struct{}

func NewScheduleDeduplicator() *ScheduleDeduplicator {
	return &ScheduleDeduplicator{}
}

// ValidOfferingName reports whether name looks like an issuer name rather
// than menu or footer text. Length bounds are in runes; issuer names are
// mostly Hangul.
func (d *ScheduleDeduplicator) ValidOfferingName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	length := utf8.RuneCountInString(name)
	if length < minNameLength || length > maxNameLength {
		return false
	}
	for _, banned := range nameDenylist {
		if strings.Contains(name, banned) {
			return false
		}
	}
	return true
}

// RowLooksLikeOffering accepts a raw row only when it has enough cells and
// at least one cell carries a date-like value (subscription or listing
// date). Header, ad and navigation rows fail this check.
func (d *ScheduleDeduplicator) RowLooksLikeOffering(row models.ScheduleRow) bool {
	if len(row.Cells) < minRowCells {
		return false
	}
	for _, cell := range row.Cells {
		if datePattern.MatchString(cell) {
			return true
		}
	}
	return false
}

// Canonicalize converts accepted rows into offerings and deduplicates them
// by name, keeping the first occurrence and preserving input order.
func (d *ScheduleDeduplicator) Canonicalize(rows []models.ScheduleRow) []models.Offering {
	var offerings []models.Offering
	for _, row := range rows {
		if !d.RowLooksLikeOffering(row) {
			continue
		}

		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = strings.TrimSpace(row.Cells[0])
		}
		if !d.ValidOfferingName(name) {
			continue
		}

		offerings = append(offerings, offeringFromCells(name, row.Cells))
	}
	return d.Deduplicate(offerings)
}

// Deduplicate keeps the first offering per name. A seen-set keeps this
// linear; the source page repeats rows across its sections.
func (d *ScheduleDeduplicator) Deduplicate(offerings []models.Offering) []models.Offering {
	seen := make(map[string]struct{}, len(offerings))
	result := make([]models.Offering, 0, len(offerings))
	for _, o := range offerings {
		if _, dup := seen[o.Name]; dup {
			continue
		}
		seen[o.Name] = struct{}{}
		result = append(result, o)
	}
	return result
}

// offeringFromCells maps the schedule table's positional columns onto an
// Offering. Missing trailing columns stay empty.
func offeringFromCells(name string, cells []string) models.Offering {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	return models.Offering{
		Name:             name,
		Category:         cell(1),
		OfferPrice:       cell(2),
		PriceBand:        cell(3),
		SubscriptionDate: cell(4),
		ListingDate:      cell(5),
		CompetitionRate:  cell(6),
	}
}
