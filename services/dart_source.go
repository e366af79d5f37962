package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

const (
	dartBaseURL      = "https://opendart.fss.or.kr/api"
	dartStatusOK     = "000"
	dartLookbackDays = 90
	dartWindowDays   = 30
)

// Filing titles that mark an offering in progress: securities registration
// statements, prospectuses and issuance reports.
var offeringReportMarkers = []string{"증권신고서", "투자설명서", "증권발행실적"}

// DartSource queries the DART open API. It serves two roles: the fallback
// schedule source when the scrape fails, and the disclosure source enriching
// the grading prompt.
type DartSource struct {
	apiKey string
	client *http.Client
	now    func() time.Time
}

func NewDartSource(apiKey string, timeout time.Duration) *DartSource {
	return &DartSource{
		apiKey: apiKey,
		client: shared.NewPooledHTTPClient(timeout),
		now:    time.Now,
	}
}

type dartListResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	List    []struct {
		CorpName  string `json:"corp_name"`
		CorpCode  string `json:"corp_code"`
		ReportNm  string `json:"report_nm"`
		ReceiptDt string `json:"rcept_dt"`
		ReceiptNo string `json:"rcept_no"`
	} `json:"list"`
}

type dartCompanyResponse struct {
	Status   string `json:"status"`
	CorpCode string `json:"corp_code"`
	CorpName string `json:"corp_name"`
}

// Fetch implements ScheduleSource as the fallback path: recent offering
// filings in a ±30-day window are synthesized into schedule rows. The rows
// carry only a name and a date cell; price and listing columns stay empty
// and render as "확인 필요" downstream.
func (s *DartSource) Fetch(ctx context.Context) ([]models.ScheduleRow, error) {
	if s.apiKey == "" {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryConfiguration, shared.CodeSourceUnavailable,
			"DART API key not configured", "dart-source", "Fetch", false, nil,
		)
	}

	begin := s.dateStamp(-dartWindowDays)
	end := s.dateStamp(dartWindowDays)
	listURL := fmt.Sprintf("%s/list.json?crtfc_key=%s&bgn_de=%s&end_de=%s&pblntf_ty=I&page_count=30",
		dartBaseURL, s.apiKey, begin, end)

	var resp dartListResponse
	if err := s.getJSON(ctx, listURL, &resp); err != nil {
		return nil, err
	}
	if resp.Status != dartStatusOK {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryProcessing, shared.CodeSourceUnavailable,
			fmt.Sprintf("DART list returned status %s: %s", resp.Status, resp.Message),
			"dart-source", "Fetch", false, nil,
		)
	}

	var rows []models.ScheduleRow
	for _, item := range resp.List {
		if !isOfferingReport(item.ReportNm) {
			continue
		}
		rows = append(rows, scheduleRowFromFiling(item.CorpName, item.ReceiptDt))
	}

	logrus.WithFields(logrus.Fields{
		"component": "DartSource",
		"row_count": len(rows),
	}).Info("Fetched fallback schedule from DART filings")
	return rows, nil
}

// FetchDisclosures implements DisclosureSource: resolve the issuer, then
// list its offering-related filings over the last 90 days.
func (s *DartSource) FetchDisclosures(ctx context.Context, companyName string) (*models.CompanyDisclosures, error) {
	if s.apiKey == "" {
		logrus.WithField("component", "DartSource").Warn("DART API key not configured, skipping disclosure lookup")
		return nil, nil
	}

	companyURL := fmt.Sprintf("%s/company.json?crtfc_key=%s&corp_name=%s",
		dartBaseURL, s.apiKey, url.QueryEscape(companyName))

	var company dartCompanyResponse
	if err := s.getJSON(ctx, companyURL, &company); err != nil {
		return nil, err
	}
	if company.Status != dartStatusOK || company.CorpCode == "" {
		return nil, nil
	}

	listURL := fmt.Sprintf("%s/list.json?crtfc_key=%s&corp_code=%s&bgn_de=%s&end_de=%s&pblntf_ty=I&page_count=10",
		dartBaseURL, s.apiKey, company.CorpCode, s.dateStamp(-dartLookbackDays), s.dateStamp(0))

	var resp dartListResponse
	if err := s.getJSON(ctx, listURL, &resp); err != nil {
		return nil, err
	}
	if resp.Status != dartStatusOK {
		return nil, nil
	}

	result := &models.CompanyDisclosures{
		CorpCode:    company.CorpCode,
		CompanyName: companyName,
	}
	for _, item := range resp.List {
		if !isOfferingReport(item.ReportNm) {
			continue
		}
		result.Disclosures = append(result.Disclosures, models.Disclosure{
			Title:     item.ReportNm,
			Date:      item.ReceiptDt,
			ReceiptNo: item.ReceiptNo,
		})
	}
	return result, nil
}

func (s *DartSource) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build DART request: %w", err)
	}

	resp, err := shared.ExecuteHTTPRequestWithRetry(s.client, req, 1)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNetwork, shared.CodeSourceUnavailable,
			"dart-source", "getJSON", true)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return shared.WrapError(
			fmt.Errorf("failed to decode DART response: %w", err),
			shared.ErrorCategoryProcessing, shared.CodeSourceUnavailable,
			"dart-source", "getJSON", false,
		)
	}
	return nil
}

// scheduleRowFromFiling shapes a filing into the positional cell layout of
// the scraped table so the deduplicator treats both sources identically. The
// filing index carries no price or listing columns; those render as
// "확인 필요" or stay empty.
func scheduleRowFromFiling(corpName, receiptDt string) models.ScheduleRow {
	return models.ScheduleRow{
		Name: corpName,
		Cells: []string{
			corpName,
			"",
			"확인 필요",
			"",
			formatDartDate(receiptDt),
			"",
			"",
		},
	}
}

func (s *DartSource) dateStamp(daysOffset int) string {
	return s.now().AddDate(0, 0, daysOffset).Format("20060102")
}

func isOfferingReport(reportName string) bool {
	for _, marker := range offeringReportMarkers {
		if strings.Contains(reportName, marker) {
			return true
		}
	}
	return false
}

// formatDartDate converts DART's YYYYMMDD receipt stamps to the dotted form
// the date normalizer accepts.
func formatDartDate(stamp string) string {
	if len(stamp) != 8 {
		return stamp
	}
	return stamp[0:4] + "." + stamp[4:6] + "." + stamp[6:8]
}
