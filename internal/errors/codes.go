package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. Frontends map messages from these codes.

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // malformed body or parameter
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // bad date or number format
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // range start after end
	ValidationRequired      = "VALIDATION_REQUIRED"       // missing required field

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"

	// ==================== Gold price (GOLD_) ====================
	GoldPriceNotFound    = "GOLD_PRICE_NOT_FOUND"    // no snapshot stored yet
	GoldInvalidPrice     = "GOLD_INVALID_PRICE"      // negative price
	GoldInvalidPurity    = "GOLD_INVALID_PURITY"     // purity other than 24k/22k/18k
	GoldPricesUnchanged  = "GOLD_PRICES_UNCHANGED"   // update equals latest snapshot
	GoldDivisionByZero   = "GOLD_DIVISION_BY_ZERO"   // percent change from zero
	GoldSourceNotEnabled = "GOLD_SOURCE_NOT_ENABLED" // no external source configured

	// ==================== Export (EXPORT_) ====================
	ExportArchiveDisabled = "EXPORT_ARCHIVE_DISABLED" // no object storage configured

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
