package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/internal/app/repository"
	"github.com/fajargold/fajargold-backend/internal/app/service"
	"github.com/fajargold/fajargold-backend/internal/db"
	apperrors "github.com/fajargold/fajargold-backend/internal/errors"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var controllerNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupGoldPriceControllerTest(t *testing.T) (*gin.Engine, repository.GoldPriceRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	repo := repository.NewGoldPriceRepository(testDB)
	changeRepo := repository.NewGoldPriceChangeRepository(testDB)
	svc := service.NewGoldPriceService(repo, changeRepo, goldprice.NewClassifier(), nil, service.GoldPriceOptions{
		BuyDiscount: 0.05,
		Location:    time.UTC,
		Now:         func() time.Time { return controllerNow },
	})
	ctrl := NewGoldPriceController(svc)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	prices := router.Group("/api/v1/gold-prices")
	prices.GET("", ctrl.GetLatestPrice)
	prices.POST("", ctrl.UpdatePrices)
	prices.POST("/purity/:purity", ctrl.UpdateFromBase)
	prices.POST("/refresh", ctrl.RefreshPrices)
	prices.GET("/history", ctrl.GetPriceHistory)
	prices.GET("/history/range", ctrl.GetPriceByDateRange)
	prices.GET("/history/export", ctrl.ExportHistory)
	prices.POST("/history/export/archive", ctrl.ArchiveHistory)
	prices.GET("/comparison", ctrl.GetComparison)
	prices.GET("/statistics", ctrl.GetStatistics)
	prices.GET("/changes", ctrl.GetRecentChanges)
	prices.GET("/changes/latest", ctrl.GetLatestChanges)
	prices.GET("/changes/:purity", ctrl.GetChangesByPurity)
	prices.POST("/validate", ctrl.ValidatePrices)
	prices.GET("/convert", ctrl.ConvertPrice)

	return router, repo
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestGoldPriceController_GetLatestPrice_NotFound(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/gold-prices", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, apperrors.GoldPriceNotFound, env.Error)
}

func TestGoldPriceController_UpdateAndRead(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices", gin.H{"harga24k": 2500000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var result model.GoldPriceUpdateResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, goldprice.PriceSet{Price24K: 2500000, Price22K: 2291750, Price18K: 1875000}, result.Price.Sell)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest model.GoldPriceResponse
	require.NoError(t, json.Unmarshal(env.Data, &latest))
	assert.Equal(t, int64(2500000), latest.Sell.Price24K)
	assert.Equal(t, "Rp 2.500.000", latest.SellDisplay["24k"])

	// same prices again
	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices", gin.H{"harga24k": 2500000})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.GoldPricesUnchanged, env.Error)
}

func TestGoldPriceController_UpdatePrices_Invalid(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"negative", gin.H{"harga24k": -1}, apperrors.GoldInvalidPrice},
		{"incomplete first snapshot", gin.H{"harga22k": 2291750}, apperrors.ValidationInvalidInput},
		{"wrong type", gin.H{"harga24k": "mahal"}, apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, env.Error)
		})
	}
}

func TestGoldPriceController_UpdateFromBase(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/purity/18k", gin.H{"sell_price": 1875000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result model.GoldPriceUpdateResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(2500000), result.Price.Sell.Price24K)
	assert.Equal(t, model.SourceAdmin, result.Price.Source)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/purity/14k", gin.H{"sell_price": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.GoldInvalidPurity, env.Error)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/purity/24k", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidInput, env.Error)
}

func TestGoldPriceController_Refresh_NoSource(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.GoldSourceNotEnabled, env.Error)
}

func TestGoldPriceController_HistoryAndChanges(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	for _, price := range []int64{2500000, 2600000, 2550000} {
		w, _ := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices", gin.H{"harga24k": price})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/history?page=0&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.GoldPriceHistoryPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Content, 2)

	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/history?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/changes?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var changes []goldprice.ChangeRecord
	require.NoError(t, json.Unmarshal(env.Data, &changes))
	assert.Len(t, changes, 3)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/changes/24K", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, goldprice.ChangeDecrease, changes[0].ChangeType)
	assert.Equal(t, int64(-50000), changes[0].ChangeAmount)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/changes/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &changes))
	assert.Len(t, changes, 3)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.GoldPriceStatistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 6, stats.TotalChanges)
}

func TestGoldPriceController_DateRange(t *testing.T) {
	router, repo := setupGoldPriceControllerTest(t)

	for i, day := range []int{8, 9, 10} {
		sell, err := goldprice.FromBase(goldprice.Purity24K, int64(2500000+i*10000))
		require.NoError(t, err)
		g := &model.GoldPrice{Source: model.SourceImport, SourceDate: time.Date(2025, 3, day, 8, 0, 0, 0, time.UTC)}
		g.SetPrices(sell, sell)
		require.NoError(t, repo.Create(g))
	}

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/history/range?start_date=2025-03-09&end_date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prices []model.GoldPriceResponse
	require.NoError(t, json.Unmarshal(env.Data, &prices))
	assert.Len(t, prices, 2)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/history/range?start_date=2025-03-10&end_date=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidRange, env.Error)

	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/history/export?start_date=2025-03-08&end_date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "harga-emas_2025-03-08_2025-03-10.xlsx")
	assert.NotZero(t, w.Body.Len())

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/history/export/archive?start_date=2025-03-08&end_date=2025-03-10", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ExportArchiveDisabled, env.Error)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/comparison", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cmp model.GoldPriceComparison
	require.NoError(t, json.Unmarshal(env.Data, &cmp))
	assert.Equal(t, model.TrendUp, cmp.Trend)
	assert.Equal(t, int64(10000), cmp.Change24K)
}

func TestGoldPriceController_ValidatePrices(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	body := gin.H{"24k": 2500000, "22k": 2292500, "18k": 1875000}
	w, env := doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/validate", body)
	require.Equal(t, http.StatusOK, w.Code)
	var result goldprice.ValidationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, int64(750), result.Details[goldprice.Purity22K].Difference)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/validate?tolerance=500", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Valid)

	w, env = doRequest(t, router, http.MethodPost, "/api/v1/gold-prices/validate", gin.H{"24k": 2500000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidInput, env.Error)
}

func TestGoldPriceController_ConvertPrice(t *testing.T) {
	router, _ := setupGoldPriceControllerTest(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/convert?purity=22&price=1000000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var set goldprice.PriceSet
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Equal(t, goldprice.PriceSet{Price24K: 1090869, Price22K: 1000000, Price18K: 818152}, set)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/convert?purity=24k&price=-5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.GoldInvalidPrice, env.Error)

	w, env = doRequest(t, router, http.MethodGet, "/api/v1/gold-prices/convert?purity=24k&price=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidFormat, env.Error)
}
