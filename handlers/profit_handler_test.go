package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/services"
)

type fakeLedgerStore struct {
	records  []models.TradeRecord
	appended []models.TradeRecord
	saved    *models.ProfitSummary
}

func (s *fakeLedgerStore) ReadAll(ctx context.Context) ([]models.TradeRecord, error) {
	return s.records, nil
}

func (s *fakeLedgerStore) Append(ctx context.Context, record *models.TradeRecord) error {
	s.appended = append(s.appended, *record)
	return nil
}

func (s *fakeLedgerStore) SaveSummary(ctx context.Context, summary *models.ProfitSummary) error {
	s.saved = summary
	return nil
}

func newProfitTestApp(store *fakeLedgerStore) *fiber.App {
	app := fiber.New()
	handler := NewProfitHandler(store, services.NewProfitAggregator())
	app.Post("/profit/trades", handler.CreateTrade)
	app.Get("/profit/summary", handler.GetProfitSummary)
	return app
}

func postTrade(t *testing.T, app *fiber.App, payload map[string]interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/profit/trades", bytes.NewReader(body))
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := app.Test(request)
	require.NoError(t, err)
	return response
}

func TestCreateTradeComputesProfit(t *testing.T) {
	store := &fakeLedgerStore{}
	app := newProfitTestApp(store)

	response := postTrade(t, app, map[string]interface{}{
		"name":        "한빛반도체",
		"offer_price": 10000,
		"quantity":    10,
		"sell_price":  12000,
		"sell_date":   "2024-03-05",
		"grade":       "A",
	})
	defer response.Body.Close()

	assert.Equal(t, fiber.StatusCreated, response.StatusCode)
	require.Len(t, store.appended, 1)

	record := store.appended[0]
	assert.Equal(t, int64(100000), record.InvestedAmount)
	assert.Equal(t, int64(20000), record.Profit)
	assert.InDelta(t, 20.0, record.ReturnRate, 0.001)
}

func TestCreateTradeRejectsMalformedSellDate(t *testing.T) {
	store := &fakeLedgerStore{}
	app := newProfitTestApp(store)

	for _, sellDate := range []string{"2024/03/05", "03-05", "2024-13-01", "미정"} {
		response := postTrade(t, app, map[string]interface{}{
			"name":        "한빛반도체",
			"offer_price": 10000,
			"quantity":    10,
			"sell_price":  12000,
			"sell_date":   sellDate,
		})

		assert.Equal(t, fiber.StatusBadRequest, response.StatusCode, "sell_date %q", sellDate)
		body, err := io.ReadAll(response.Body)
		response.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(body), "MALFORMED_DATE")
	}

	assert.Empty(t, store.appended)
}

func TestCreateTradeAllowsPendingWithoutSellDate(t *testing.T) {
	store := &fakeLedgerStore{}
	app := newProfitTestApp(store)

	response := postTrade(t, app, map[string]interface{}{
		"name":        "서울바이오",
		"offer_price": 5000,
		"quantity":    10,
	})
	defer response.Body.Close()

	assert.Equal(t, fiber.StatusCreated, response.StatusCode)
	require.Len(t, store.appended, 1)
	assert.False(t, store.appended[0].Completed())
	assert.Zero(t, store.appended[0].Profit)
}

func TestCreateTradeRejectsUnknownGrade(t *testing.T) {
	store := &fakeLedgerStore{}
	app := newProfitTestApp(store)

	response := postTrade(t, app, map[string]interface{}{
		"name":        "한빛반도체",
		"offer_price": 10000,
		"quantity":    10,
		"grade":       "A++",
	})
	defer response.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, response.StatusCode)
	assert.Empty(t, store.appended)
}

func TestGetProfitSummaryPersistsSnapshot(t *testing.T) {
	store := &fakeLedgerStore{
		records: []models.TradeRecord{
			{Name: "한빛반도체", OfferPrice: 10000, Quantity: 10, SellPrice: 12000, SellDate: "2024-03-05", Grade: "A"},
		},
	}
	app := newProfitTestApp(store)

	request := httptest.NewRequest(http.MethodGet, "/profit/summary", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, fiber.StatusOK, response.StatusCode)
	require.NotNil(t, store.saved)
	require.Len(t, store.saved.Monthly, 1)
	assert.Equal(t, "2024-03", store.saved.Monthly[0].Period)
}
