package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// ScheduleScraperConfiguration holds configuration for the offering schedule
// scraper.
type ScheduleScraperConfiguration struct {
	ScheduleURL        string
	HTTPRequestTimeout time.Duration
	MaxRetryAttempts   int
}

// NewDefaultScheduleScraperConfiguration returns production defaults for the
// 38.co.kr offering schedule page.
func NewDefaultScheduleScraperConfiguration() *ScheduleScraperConfiguration {
	return &ScheduleScraperConfiguration{
		ScheduleURL:        "https://www.38.co.kr/html/fund/index.htm?o=k",
		HTTPRequestTimeout: 15 * time.Second,
		MaxRetryAttempts:   2,
	}
}

// ScheduleScraper fetches the public offering schedule table. The page is
// EUC-KR encoded legacy HTML without stable ids, so every table row is
// collected and left to the deduplicator's date-pattern filter.
type ScheduleScraper struct {
	config *ScheduleScraperConfiguration
}

func NewScheduleScraper(config *ScheduleScraperConfiguration) *ScheduleScraper {
	if config == nil {
		config = NewDefaultScheduleScraperConfiguration()
	}
	return &ScheduleScraper{config: config}
}

// Fetch implements ScheduleSource. It returns every table row with its cell
// texts; rows are not filtered here so the acceptance rules live in one
// place (the deduplicator).
func (s *ScheduleScraper) Fetch(ctx context.Context) ([]models.ScheduleRow, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "ScheduleScraper",
		"url":       s.config.ScheduleURL,
	})
	logger.Info("Fetching offering schedule")

	c := colly.NewCollector(
		colly.DetectCharset(),   // source serves EUC-KR
		colly.AllowURLRevisit(), // the retry loop refetches the same URL
	)
	c.SetRequestTimeout(s.config.HTTPRequestTimeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	})

	var rows []models.ScheduleRow

	c.OnHTML("table tr", func(e *colly.HTMLElement) {
		var cells []string
		e.ForEach("td", func(_ int, td *colly.HTMLElement) {
			cells = append(cells, strings.TrimSpace(td.Text))
		})
		if len(cells) == 0 {
			return
		}

		// Issuer name is the link text of the first cell when present;
		// plain cell text otherwise.
		name := strings.TrimSpace(e.DOM.Find("td").First().Find("a").First().Text())

		rows = append(rows, models.ScheduleRow{Cells: cells, Name: name})
	})

	var visitErr error
	for attempt := 0; attempt <= s.config.MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			logger.WithField("attempt", attempt+1).Debug("Retrying schedule fetch")
		}
		rows = rows[:0]
		visitErr = c.Visit(s.config.ScheduleURL)
		if visitErr == nil {
			break
		}
	}
	if visitErr != nil {
		return nil, shared.WrapError(
			fmt.Errorf("schedule fetch failed: %w", visitErr),
			shared.ErrorCategoryNetwork, shared.CodeSourceUnavailable,
			"schedule-scraper", "Fetch", true,
		)
	}
	c.Wait()

	logger.WithField("row_count", len(rows)).Info("Fetched offering schedule rows")
	return rows, nil
}
