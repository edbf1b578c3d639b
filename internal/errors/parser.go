package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/fajargold/fajargold-backend/internal/app/service"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo parsed error
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

type sentinel struct {
	err  error
	info ErrorInfo
}

// checked in order; wrapped errors match through errors.Is
var sentinels = []sentinel{
	{goldprice.ErrInvalidPrice, ErrorInfo{http.StatusBadRequest, GoldInvalidPrice, "Harga harus lebih dari 0"}},
	{goldprice.ErrUnknownPurity, ErrorInfo{http.StatusBadRequest, GoldInvalidPurity, "Kadar emas harus 24k, 22k, atau 18k"}},
	{goldprice.ErrInvalidInput, ErrorInfo{http.StatusBadRequest, ValidationInvalidInput, "Harga untuk semua kadar wajib diisi"}},
	{goldprice.ErrDivisionByZero, ErrorInfo{http.StatusBadRequest, GoldDivisionByZero, "Persentase perubahan tidak dapat dihitung dari harga nol"}},
	{service.ErrInvalidDateRange, ErrorInfo{http.StatusBadRequest, ValidationInvalidRange, "Rentang tanggal tidak valid, gunakan format YYYY-MM-DD"}},
	{service.ErrGoldPriceNotFound, ErrorInfo{http.StatusNotFound, GoldPriceNotFound, "Harga emas belum tersedia"}},
	{service.ErrPricesUnchanged, ErrorInfo{http.StatusConflict, GoldPricesUnchanged, "Harga baru sama dengan harga terakhir"}},
	{service.ErrNoPriceSource, ErrorInfo{http.StatusServiceUnavailable, GoldSourceNotEnabled, "Sumber harga eksternal belum dikonfigurasi"}},
	{service.ErrExternalAPIFailed, ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "Gagal mengambil harga dari sumber eksternal. Silakan coba lagi nanti"}},
	{service.ErrArchiveDisabled, ErrorInfo{http.StatusServiceUnavailable, ExportArchiveDisabled, "Penyimpanan arsip ekspor belum dikonfigurasi"}},
	{gorm.ErrRecordNotFound, ErrorInfo{http.StatusNotFound, ResourceNotFound, "Data tidak ditemukan"}},
}

// driver error fragments of postgres and sqlite
var databaseErrorHints = []string{"sqlstate", "pq:", "relation", "no such table", "database is locked", "sql:"}

// ParseError maps an error to a status, code and user facing message.
// Database details are never exposed.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{http.StatusInternalServerError, InternalServerError, getDefaultErrorMessage(context)}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.info
		}
	}

	errLower := strings.ToLower(err.Error())

	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return ErrorInfo{http.StatusConflict, ResourceAlreadyExists, "Data sudah ada"}
	}
	if strings.Contains(errLower, "violates not-null constraint") {
		return ErrorInfo{http.StatusBadRequest, ValidationRequired, "Data wajib belum diisi"}
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return ErrorInfo{http.StatusInternalServerError, InternalDatabaseError, getDefaultErrorMessage(context)}
	}
	for _, hint := range databaseErrorHints {
		if strings.Contains(errLower, hint) {
			return ErrorInfo{http.StatusInternalServerError, InternalDatabaseError, getDefaultErrorMessage(context)}
		}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "Gagal terhubung ke layanan eksternal. Silakan coba lagi nanti"}
	}

	return ErrorInfo{http.StatusInternalServerError, InternalServerError, getDefaultErrorMessage(context)}
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "update"):
		return "Gagal memperbarui harga emas. Silakan coba lagi nanti"
	case strings.Contains(contextLower, "export"):
		return "Gagal membuat file ekspor. Silakan coba lagi nanti"
	case strings.Contains(contextLower, "history"):
		return "Gagal mengambil riwayat harga emas. Silakan coba lagi nanti"
	}
	return "Terjadi kesalahan pada server. Silakan coba lagi nanti"
}

// ParseAndRespond parses err and writes the matching error response
func ParseAndRespond(c *gin.Context, err error, context string) {
	info := ParseError(err, context)
	RespondWithError(c, info.Status, info.Code, info.Message)
}
