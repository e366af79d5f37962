package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// DetailScraperConfiguration holds configuration for the offering detail
// scraper.
type DetailScraperConfiguration struct {
	SearchURL              string // name is appended URL-encoded
	HTTPRequestTimeout     time.Duration
	MaxRetryAttempts       int
	EnableRenderedFallback bool // headless render when the static page has no data
}

func NewDefaultDetailScraperConfiguration() *DetailScraperConfiguration {
	return &DetailScraperConfiguration{
		SearchURL:              "https://www.38.co.kr/html/fund/index.htm?o=k&name=",
		HTTPRequestTimeout:     10 * time.Second,
		MaxRetryAttempts:       2,
		EnableRenderedFallback: true,
	}
}

// DetailScraper fetches per-offering demand-forecast figures. The static
// EUC-KR page is tried first; when it yields no recognizable fields the page
// is re-fetched through a headless browser, which some mirror layouts
// require.
type DetailScraper struct {
	config *DetailScraperConfiguration
	client *http.Client
}

func NewDetailScraper(config *DetailScraperConfiguration) *DetailScraper {
	if config == nil {
		config = NewDefaultDetailScraperConfiguration()
	}
	return &DetailScraper{
		config: config,
		client: shared.NewPooledHTTPClient(config.HTTPRequestTimeout),
	}
}

// Detail-table labels and their destination fields. The page uses slightly
// different labels across sections, so each field carries alternatives.
var detailLabelTargets = []struct {
	markers []string
	assign  func(detail *models.OfferingDetail, value string)
}{
	{[]string{"기관경쟁률"}, func(d *models.OfferingDetail, v string) { d.InstitutionalCompetition = v }},
	{[]string{"확약비율", "의무보유"}, func(d *models.OfferingDetail, v string) { d.LockupRatio = v }},
	{[]string{"주간사", "대표주관"}, func(d *models.OfferingDetail, v string) { d.Underwriter = v }},
	{[]string{"공모주식수"}, func(d *models.OfferingDetail, v string) { d.TotalShares = v }},
	{[]string{"공모금액"}, func(d *models.OfferingDetail, v string) { d.PublicOffering = v }},
}

// FetchDetail implements DetailSource. nil, nil means no detail page exists
// for the name yet (common before demand forecasting completes).
func (s *DetailScraper) FetchDetail(ctx context.Context, name string) (*models.OfferingDetail, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "DetailScraper",
		"offering":  name,
	})

	document, err := s.fetchStaticDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	detail := extractDetailFields(document, name)
	if detailHasData(detail) {
		return detail, nil
	}

	if !s.config.EnableRenderedFallback {
		logger.Debug("No detail fields in static page, rendered fallback disabled")
		return nil, nil
	}

	logger.Info("Static detail page empty, retrying with rendered fetch")
	html, err := s.fetchRenderedHTML(ctx, name)
	if err != nil {
		// Degrade to "no detail" rather than failing the offering.
		logger.WithError(err).Warn("Rendered detail fetch failed")
		return nil, nil
	}

	document, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}
	detail = extractDetailFields(document, name)
	if !detailHasData(detail) {
		return nil, nil
	}
	return detail, nil
}

func (s *DetailScraper) fetchStaticDocument(ctx context.Context, name string) (*goquery.Document, error) {
	requestURL := s.config.SearchURL + url.QueryEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build detail request: %w", err)
	}
	shared.SetBrowserLikeHeaders(req, "text/html,application/xhtml+xml")

	resp, err := shared.ExecuteHTTPRequestWithRetry(s.client, req, s.config.MaxRetryAttempts)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryNetwork, shared.CodeSourceUnavailable,
			"detail-scraper", "FetchDetail", true)
	}
	defer resp.Body.Close()

	// The source serves EUC-KR regardless of Accept-Charset.
	reader := transform.NewReader(resp.Body, korean.EUCKR.NewDecoder())
	document, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, shared.WrapError(
			fmt.Errorf("failed to parse detail page: %w", err),
			shared.ErrorCategoryProcessing, shared.CodeSourceUnavailable,
			"detail-scraper", "FetchDetail", false,
		)
	}
	return document, nil
}

// fetchRenderedHTML loads the detail page in headless Chrome and returns the
// rendered outer HTML.
func (s *DetailScraper) fetchRenderedHTML(ctx context.Context, name string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(s.config.SearchURL+url.QueryEscape(name)),
		chromedp.WaitVisible("table", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("rendered fetch failed: %w", err)
	}
	return html, nil
}

// extractDetailFields walks label/value table rows. The first th/td is the
// label, the last td the value, matching the source's two-column layout.
func extractDetailFields(document *goquery.Document, name string) *models.OfferingDetail {
	detail := &models.OfferingDetail{Name: name}

	document.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th, td").First().Text())
		value := strings.TrimSpace(row.Find("td").Last().Text())
		if label == "" || value == "" {
			return
		}

		for _, target := range detailLabelTargets {
			for _, marker := range target.markers {
				if strings.Contains(label, marker) {
					target.assign(detail, value)
					break
				}
			}
		}
	})

	return detail
}

func detailHasData(detail *models.OfferingDetail) bool {
	return detail.InstitutionalCompetition != "" ||
		detail.LockupRatio != "" ||
		detail.Underwriter != "" ||
		detail.TotalShares != "" ||
		detail.PublicOffering != ""
}
