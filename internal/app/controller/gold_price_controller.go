package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/internal/app/service"
	apperrors "github.com/fajargold/fajargold-backend/internal/errors"
	"github.com/fajargold/fajargold-backend/internal/middleware"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/gin-gonic/gin"
)

// GoldPriceController gold price endpoints
type GoldPriceController struct {
	goldPriceService service.GoldPriceService
}

// NewGoldPriceController creates the gold price controller
func NewGoldPriceController(goldPriceService service.GoldPriceService) *GoldPriceController {
	return &GoldPriceController{
		goldPriceService: goldPriceService,
	}
}

// UpdateFromBaseRequest sets every purity from one known sell price
type UpdateFromBaseRequest struct {
	SellPrice int64  `json:"sell_price" binding:"required,gt=0"`
	Source    string `json:"source"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, fmt.Sprintf("Parameter %s harus berupa angka", key))
		return 0, false
	}
	return v, true
}

func (ctrl *GoldPriceController) fail(c *gin.Context, err error, context string) {
	middleware.GetLoggerFromContext(c).Warn("Gold price request failed", map[string]interface{}{
		"context": context,
		"error":   err.Error(),
	})
	c.Error(err)
	apperrors.ParseAndRespond(c, err, context)
}

// GetLatestPrice latest snapshot
// @Summary Latest gold price
// @Tags gold-price
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/gold-prices [get]
func (ctrl *GoldPriceController) GetLatestPrice(c *gin.Context) {
	price, err := ctrl.goldPriceService.GetLatestPrice(c.Request.Context())
	if err != nil {
		ctrl.fail(c, err, "get latest price")
		return
	}
	respondOK(c, price)
}

// UpdatePrices stores new sell prices. harga24k derives 22k and 18k.
// @Summary Update gold prices
// @Tags gold-price
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/gold-prices [post]
func (ctrl *GoldPriceController) UpdatePrices(c *gin.Context) {
	var req service.UpdatePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Format permintaan tidak valid")
		return
	}

	result, err := ctrl.goldPriceService.UpdatePrices(c.Request.Context(), req)
	if err != nil {
		ctrl.fail(c, err, "update prices")
		return
	}
	respondOK(c, result)
}

// UpdateFromBase derives every purity from the sell price of :purity
// @Router /api/v1/gold-prices/purity/{purity} [post]
func (ctrl *GoldPriceController) UpdateFromBase(c *gin.Context) {
	purity, err := goldprice.ParsePurity(c.Param("purity"))
	if err != nil {
		ctrl.fail(c, err, "update prices")
		return
	}

	var req UpdateFromBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{
			"sell_price": "Harga jual wajib diisi dan harus lebih dari 0",
		})
		return
	}

	result, err := ctrl.goldPriceService.UpdateFromBase(c.Request.Context(), purity, req.SellPrice, model.PriceSource(req.Source))
	if err != nil {
		ctrl.fail(c, err, "update prices")
		return
	}
	respondOK(c, result)
}

// RefreshPrices pulls the current quote from the external sources and stores it
// @Router /api/v1/gold-prices/refresh [post]
func (ctrl *GoldPriceController) RefreshPrices(c *gin.Context) {
	result, err := ctrl.goldPriceService.RefreshFromSources(c.Request.Context(), model.SourceSystem)
	if err != nil {
		ctrl.fail(c, err, "update prices")
		return
	}
	respondOK(c, result)
}

// GetExternalPrice previews the external quote without storing it
func (ctrl *GoldPriceController) GetExternalPrice(c *gin.Context) {
	preview, err := ctrl.goldPriceService.PreviewExternal(c.Request.Context())
	if err != nil {
		ctrl.fail(c, err, "external price")
		return
	}
	respondOK(c, preview)
}

// GetPriceHistory paged history, newest first
// @Summary Gold price history
// @Tags gold-price
// @Produce json
// @Param page query int false "zero-based page" default(0)
// @Param size query int false "page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/gold-prices/history [get]
func (ctrl *GoldPriceController) GetPriceHistory(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok {
		return
	}

	history, err := ctrl.goldPriceService.GetPriceHistory(page, size)
	if err != nil {
		ctrl.fail(c, err, "history")
		return
	}
	respondOK(c, history)
}

// GetPriceByDateRange snapshots between start_date and end_date (YYYY-MM-DD)
// @Router /api/v1/gold-prices/history/range [get]
func (ctrl *GoldPriceController) GetPriceByDateRange(c *gin.Context) {
	prices, err := ctrl.goldPriceService.GetPriceByDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		ctrl.fail(c, err, "history")
		return
	}
	respondOK(c, prices)
}

// ExportHistory downloads the range as an XLSX workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/v1/gold-prices/history/export [get]
func (ctrl *GoldPriceController) ExportHistory(c *gin.Context) {
	start, end := c.Query("start_date"), c.Query("end_date")
	data, err := ctrl.goldPriceService.ExportHistory(start, end)
	if err != nil {
		ctrl.fail(c, err, "export")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, service.ExportFilename(start, end)))
	c.Data(http.StatusOK, service.ExportContentType, data)
}

// ArchiveHistory stores the range export in object storage and returns a download link
// @Router /api/v1/gold-prices/history/export/archive [post]
func (ctrl *GoldPriceController) ArchiveHistory(c *gin.Context) {
	archive, err := ctrl.goldPriceService.ArchiveHistory(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		ctrl.fail(c, err, "export")
		return
	}
	respondOK(c, archive)
}

// GetComparison today vs yesterday for 24K
func (ctrl *GoldPriceController) GetComparison(c *gin.Context) {
	cmp, err := ctrl.goldPriceService.GetComparison()
	if err != nil {
		ctrl.fail(c, err, "comparison")
		return
	}
	respondOK(c, cmp)
}

func (ctrl *GoldPriceController) GetStatistics(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	stats, err := ctrl.goldPriceService.GetStatistics(limit)
	if err != nil {
		ctrl.fail(c, err, "statistics")
		return
	}
	respondOK(c, stats)
}

// GetRecentChanges newest change records across purities
// @Param limit query int false "max records" default(10)
// @Router /api/v1/gold-prices/changes [get]
func (ctrl *GoldPriceController) GetRecentChanges(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	changes, err := ctrl.goldPriceService.GetRecentChanges(limit)
	if err != nil {
		ctrl.fail(c, err, "changes")
		return
	}
	respondOK(c, changes)
}

func (ctrl *GoldPriceController) GetLatestChanges(c *gin.Context) {
	changes, err := ctrl.goldPriceService.GetLatestChanges()
	if err != nil {
		ctrl.fail(c, err, "changes")
		return
	}
	respondOK(c, changes)
}

func (ctrl *GoldPriceController) GetChangesByPurity(c *gin.Context) {
	purity, err := goldprice.ParsePurity(c.Param("purity"))
	if err != nil {
		ctrl.fail(c, err, "changes")
		return
	}
	changes, err := ctrl.goldPriceService.GetChangesByPurity(purity)
	if err != nil {
		ctrl.fail(c, err, "changes")
		return
	}
	respondOK(c, changes)
}

// ValidatePrices checks a submitted price set against the karat ratios.
// An optional tolerance query overrides the configured one.
// @Router /api/v1/gold-prices/validate [post]
func (ctrl *GoldPriceController) ValidatePrices(c *gin.Context) {
	var set goldprice.PriceSet
	if err := c.ShouldBindJSON(&set); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Format permintaan tidak valid")
		return
	}

	var tolerance *int64
	if raw := c.Query("tolerance"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Parameter tolerance harus berupa angka")
			return
		}
		tolerance = &v
	}

	result, err := ctrl.goldPriceService.Validate(set, tolerance)
	if err != nil {
		ctrl.fail(c, err, "validate")
		return
	}
	respondOK(c, result)
}

// ConvertPrice derives every purity from ?purity=&price= without storing anything
func (ctrl *GoldPriceController) ConvertPrice(c *gin.Context) {
	purity, err := goldprice.ParsePurity(c.Query("purity"))
	if err != nil {
		ctrl.fail(c, err, "convert")
		return
	}
	price, err := strconv.ParseInt(c.Query("price"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Parameter price harus berupa angka")
		return
	}

	set, err := ctrl.goldPriceService.Convert(purity, price)
	if err != nil {
		ctrl.fail(c, err, "convert")
		return
	}
	respondOK(c, set)
}
