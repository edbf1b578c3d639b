package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/internal/app/repository"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/fajargold/fajargold-backend/pkg/util"
	"github.com/shopspring/decimal"
)

var (
	ErrGoldPriceNotFound = errors.New("harga emas belum tersedia")
	ErrPricesUnchanged   = errors.New("harga baru sama dengan harga terakhir")
	ErrNoPriceSource     = errors.New("sumber harga eksternal belum dikonfigurasi")
	ErrExternalAPIFailed = errors.New("gagal mengambil harga emas dari sumber eksternal")
	ErrInvalidDateRange  = errors.New("rentang tanggal tidak valid")
	ErrArchiveDisabled   = errors.New("penyimpanan arsip ekspor belum dikonfigurasi")
)

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 10
	maxPageSize     = 100
)

// PriceCache caches the latest snapshot response
type PriceCache interface {
	SetLatest(ctx context.Context, v interface{}) error
	GetLatest(ctx context.Context, dst interface{}) (bool, error)
	Invalidate(ctx context.Context) error
}

// ArchiveStore keeps exported workbooks and serves them through expiring links
type ArchiveStore interface {
	NewKey(name string) string
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ChangeNotifier is told about every committed price update
type ChangeNotifier interface {
	NotifyPriceUpdate(price *model.GoldPriceResponse, changes []goldprice.ChangeRecord)
}

// GoldPriceOptions tunes the service; zero values fall back to defaults.
// A nil or negative Tolerance uses goldprice.DefaultTolerance, zero means exact.
type GoldPriceOptions struct {
	Tolerance   *int64
	SellMarkup  float64
	BuyDiscount float64
	ChangeLimit int
	Location    *time.Location
	Cache       PriceCache
	Notifier    ChangeNotifier
	Archive     ArchiveStore
	ArchiveTTL  time.Duration
	Now         func() time.Time
}

// UpdatePricesRequest sets sell prices. A positive Harga24K derives 22K and
// 18K; explicit 22K/18K values override the derived ones.
type UpdatePricesRequest struct {
	Harga24K    int64  `json:"harga24k"`
	Harga22K    int64  `json:"harga22k"`
	Harga18K    int64  `json:"harga18k"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// GoldPriceService gold price use cases
type GoldPriceService interface {
	GetLatestPrice(ctx context.Context) (*model.GoldPriceResponse, error)
	GetPriceHistory(page, size int) (*model.GoldPriceHistoryPage, error)
	GetPriceByDateRange(startDate, endDate string) ([]model.GoldPriceResponse, error)
	GetComparison() (*model.GoldPriceComparison, error)
	GetStatistics(limit int) (*model.GoldPriceStatistics, error)

	UpdatePrices(ctx context.Context, req UpdatePricesRequest) (*model.GoldPriceUpdateResult, error)
	UpdateFromBase(ctx context.Context, purity goldprice.Purity, sellPrice int64, source model.PriceSource) (*model.GoldPriceUpdateResult, error)
	RefreshFromSources(ctx context.Context, source model.PriceSource) (*model.GoldPriceUpdateResult, error)
	PreviewExternal(ctx context.Context) (*model.ExternalPricePreview, error)

	GetRecentChanges(limit int) ([]goldprice.ChangeRecord, error)
	GetChangesByPurity(purity goldprice.Purity) ([]goldprice.ChangeRecord, error)
	GetLatestChanges() ([]goldprice.ChangeRecord, error)

	Validate(set goldprice.PriceSet, tolerance *int64) (goldprice.ValidationResult, error)
	Convert(purity goldprice.Purity, price int64) (goldprice.PriceSet, error)
	ExportHistory(startDate, endDate string) ([]byte, error)
	ArchiveHistory(ctx context.Context, startDate, endDate string) (*model.ExportArchive, error)
}

type goldPriceService struct {
	repo       repository.GoldPriceRepository
	changeRepo repository.GoldPriceChangeRepository
	classifier goldprice.Classifier
	source     PriceSource
	preview    PriceSource
	opts       GoldPriceOptions
	tolerance  int64

	// serializes read-latest/commit so each transition sees the last committed set
	mu sync.Mutex
}

// NewGoldPriceService creates the service. source may be nil when no
// external source is configured.
func NewGoldPriceService(
	repo repository.GoldPriceRepository,
	changeRepo repository.GoldPriceChangeRepository,
	classifier goldprice.Classifier,
	source PriceSource,
	opts GoldPriceOptions,
) GoldPriceService {
	if classifier == nil {
		classifier = goldprice.NewClassifier()
	}
	tolerance := goldprice.DefaultTolerance
	if opts.Tolerance != nil && *opts.Tolerance >= 0 {
		tolerance = *opts.Tolerance
	}
	if opts.ChangeLimit <= 0 {
		opts.ChangeLimit = 10
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ArchiveTTL <= 0 {
		opts.ArchiveTTL = 15 * time.Minute
	}

	preview := PriceSource(NewDatabaseSource(repo))
	if source != nil {
		preview = NewSourceChain(source, preview)
	}

	return &goldPriceService{
		repo:       repo,
		changeRepo: changeRepo,
		classifier: classifier,
		source:     source,
		preview:    preview,
		opts:       opts,
		tolerance:  tolerance,
	}
}

func (s *goldPriceService) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// GetLatestPrice returns the newest snapshot, served from cache when possible
func (s *goldPriceService) GetLatestPrice(ctx context.Context) (*model.GoldPriceResponse, error) {
	if s.opts.Cache != nil {
		var cached model.GoldPriceResponse
		found, err := s.opts.Cache.GetLatest(ctx, &cached)
		if err != nil {
			logger.Warn("Gold price cache read failed", logger.Fields{"error": err.Error()})
		}
		if found {
			if at, err := time.Parse(time.RFC3339, cached.SourceDate); err == nil {
				cached.UpdatedAgo = goldprice.FormatTimeAgo(s.now(), at)
			}
			return &cached, nil
		}
	}

	latest, err := s.repo.FindLatest()
	if err != nil {
		logger.Error("Failed to get latest gold price", err)
		return nil, err
	}
	if latest == nil {
		return nil, ErrGoldPriceNotFound
	}

	resp := s.toResponse(latest)
	s.cacheLatest(ctx, resp)
	return resp, nil
}

// GetPriceHistory returns a zero-based page of snapshots, newest first
func (s *goldPriceService) GetPriceHistory(page, size int) (*model.GoldPriceHistoryPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	prices, total, err := s.repo.FindPage(page, size)
	if err != nil {
		logger.Error("Failed to get price history", err)
		return nil, err
	}

	return &model.GoldPriceHistoryPage{
		Content:       s.toResponses(prices),
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
		CurrentPage:   page,
	}, nil
}

// GetPriceByDateRange returns snapshots between two YYYY-MM-DD dates, both inclusive
func (s *goldPriceService) GetPriceByDateRange(startDate, endDate string) ([]model.GoldPriceResponse, error) {
	prices, err := s.findRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.toResponses(prices), nil
}

func (s *goldPriceService) findRange(startDate, endDate string) ([]model.GoldPrice, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, s.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrInvalidDateRange, startDate)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, s.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q", ErrInvalidDateRange, endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, startDate, endDate)
	}

	prices, err := s.repo.FindByDateRange(start, end.AddDate(0, 0, 1))
	if err != nil {
		logger.Error("Failed to get gold prices by date range", err)
		return nil, err
	}
	return prices, nil
}

// GetComparison compares the latest 24K price of today with yesterday's
func (s *goldPriceService) GetComparison() (*model.GoldPriceComparison, error) {
	now := s.now()

	today, err := s.repo.FindLatestOnDate(now)
	if err != nil {
		return nil, err
	}
	if today == nil {
		if today, err = s.repo.FindLatest(); err != nil {
			return nil, err
		}
	}
	if today == nil {
		return nil, ErrGoldPriceNotFound
	}

	yesterday, err := s.repo.FindLatestOnDate(now.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	cmp := &model.GoldPriceComparison{Today: s.toResponse(today), Trend: model.TrendStable}
	if yesterday == nil {
		return cmp, nil
	}

	cmp.Yesterday = s.toResponse(yesterday)
	rec := goldprice.Classify(goldprice.Purity24K, yesterday.Sell24K, today.Sell24K, "", now)
	cmp.Change24K = rec.ChangeAmount
	if rec.ChangePercent != nil {
		pct := rec.PercentString()
		cmp.ChangePercent24K = &pct
	}
	switch rec.ChangeType {
	case goldprice.ChangeIncrease:
		cmp.Trend = model.TrendUp
	case goldprice.ChangeDecrease:
		cmp.Trend = model.TrendDown
	}
	return cmp, nil
}

// GetStatistics summarizes the most recent change records
func (s *goldPriceService) GetStatistics(limit int) (*model.GoldPriceStatistics, error) {
	records, err := s.GetRecentChanges(limit)
	if err != nil {
		return nil, err
	}

	stats := &model.GoldPriceStatistics{TotalChanges: len(records), AveragePercent: "0.00"}
	sum := decimal.Zero
	withPercent := 0
	for _, rec := range records {
		switch rec.ChangeType {
		case goldprice.ChangeIncrease:
			stats.Increases++
		case goldprice.ChangeDecrease:
			stats.Decreases++
		default:
			stats.Stable++
		}
		if rec.ChangePercent != nil {
			sum = sum.Add(rec.ChangePercent.Abs())
			withPercent++
		}
	}
	if withPercent > 0 {
		stats.AveragePercent = sum.Div(decimal.NewFromInt(int64(withPercent))).StringFixed(2)
	}
	if len(records) > 0 {
		latest := records[0]
		stats.LatestChange = &latest
		stats.LatestChangeTime = goldprice.FormatTimeAgo(s.now(), latest.ChangeDate)
	}
	return stats, nil
}

// UpdatePrices applies a full or partial sell price update
func (s *goldPriceService) UpdatePrices(ctx context.Context, req UpdatePricesRequest) (*model.GoldPriceUpdateResult, error) {
	for _, v := range []int64{req.Harga24K, req.Harga22K, req.Harga18K} {
		if v < 0 {
			return nil, fmt.Errorf("%w: got %d", goldprice.ErrInvalidPrice, v)
		}
	}
	source := model.PriceSource(req.Source)
	if source == "" {
		source = model.SourceManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.repo.FindLatest()
	if err != nil {
		return nil, err
	}

	var sell goldprice.PriceSet
	if req.Harga24K > 0 {
		if sell, err = goldprice.FromBase(goldprice.Purity24K, req.Harga24K); err != nil {
			return nil, err
		}
	} else if latest != nil {
		sell = latest.SellSet()
	}
	if req.Harga22K > 0 {
		sell.Price22K = req.Harga22K
	}
	if req.Harga18K > 0 {
		sell.Price18K = req.Harga18K
	}
	if !sell.Complete() {
		return nil, fmt.Errorf("%w: %+v", goldprice.ErrInvalidInput, sell)
	}

	return s.commit(ctx, latest, sell, source, req.Description)
}

// UpdateFromBase sets every purity from a single known sell price
func (s *goldPriceService) UpdateFromBase(ctx context.Context, purity goldprice.Purity, sellPrice int64, source model.PriceSource) (*model.GoldPriceUpdateResult, error) {
	sell, err := goldprice.FromBase(purity, sellPrice)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = model.SourceAdmin
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.repo.FindLatest()
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, latest, sell, source, fmt.Sprintf("Updated from %s price", purity))
}

// RefreshFromSources pulls a 24K quote from the source chain and stores it
func (s *goldPriceService) RefreshFromSources(ctx context.Context, source model.PriceSource) (*model.GoldPriceUpdateResult, error) {
	if s.source == nil {
		return nil, ErrNoPriceSource
	}
	quote, err := s.source.Fetch(ctx)
	if err != nil {
		logger.Error("Failed to fetch gold price from sources", err)
		return nil, err
	}

	sell, err := goldprice.FromBase(goldprice.Purity24K, s.retailPrice(quote))
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = model.SourceSystem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.repo.FindLatest()
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, latest, sell, source, "Fetched from "+quote.Source)
}

// PreviewExternal fetches a quote without storing it, falling back to the database
func (s *goldPriceService) PreviewExternal(ctx context.Context) (*model.ExternalPricePreview, error) {
	quote, err := s.preview.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	sell, err := goldprice.FromBase(goldprice.Purity24K, s.retailPrice(quote))
	if err != nil {
		return nil, err
	}
	return &model.ExternalPricePreview{
		Source:    quote.Source,
		FetchedAt: quote.FetchedAt,
		Sell:      sell,
		Buy:       s.buySet(sell),
	}, nil
}

func (s *goldPriceService) retailPrice(q *SourceQuote) int64 {
	if q.Retail {
		return q.Price24K
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(s.opts.SellMarkup))
	return goldprice.Scale(goldprice.PriceSet{Price24K: q.Price24K}, factor).Price24K
}

func (s *goldPriceService) buySet(sell goldprice.PriceSet) goldprice.PriceSet {
	return goldprice.Scale(sell, decimal.NewFromInt(1).Sub(decimal.NewFromFloat(s.opts.BuyDiscount)))
}

// commit stores a new snapshot and its change records. Caller holds mu.
func (s *goldPriceService) commit(ctx context.Context, latest *model.GoldPrice, sell goldprice.PriceSet, source model.PriceSource, description string) (*model.GoldPriceUpdateResult, error) {
	var oldSet goldprice.PriceSet
	if latest != nil {
		oldSet = latest.SellSet()
		if oldSet == sell {
			return nil, ErrPricesUnchanged
		}
	}

	validation, err := goldprice.Validate(sell, s.tolerance)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		logger.Warn("Gold prices drift from karat ratios", logger.Fields{
			"source":  source,
			"details": validation.Details,
		})
	}

	now := s.now()
	snapshot := &model.GoldPrice{
		Source:      source,
		SourceDate:  now,
		Description: description,
	}
	snapshot.SetPrices(sell, s.buySet(sell))

	deferred, isDeferred := s.classifier.(goldprice.DeferredClassifier)
	var records []goldprice.ChangeRecord
	if isDeferred {
		records = deferred.Peek(oldSet, sell, string(source), now)
	} else {
		records = s.classifier.ClassifyAll(oldSet, sell, string(source), now)
	}
	rows := make([]*model.GoldPriceChange, 0, len(records))
	for i := range records {
		records[i].Notes = "Updated via " + string(source)
		rows = append(rows, model.NewGoldPriceChange(records[i]))
	}

	err = s.repo.Transaction(func(prices repository.GoldPriceRepository, changes repository.GoldPriceChangeRepository) error {
		if err := prices.Create(snapshot); err != nil {
			return err
		}
		return changes.CreateBatch(rows)
	})
	if err != nil {
		logger.Error("Failed to store gold price update", err, logger.Fields{"source": source})
		return nil, err
	}
	if isDeferred {
		deferred.Remember(records)
	}

	resp := s.toResponse(snapshot)
	s.cacheLatest(ctx, resp)
	if s.opts.Notifier != nil {
		s.opts.Notifier.NotifyPriceUpdate(resp, records)
	}

	logger.Info("Gold prices updated", logger.Fields{
		"source":   source,
		"sell_24k": sell.Price24K,
		"changes":  len(records),
		"valid":    validation.Valid,
	})

	return &model.GoldPriceUpdateResult{
		Price:      resp,
		Changes:    records,
		Validation: &validation,
	}, nil
}

func (s *goldPriceService) cacheLatest(ctx context.Context, resp *model.GoldPriceResponse) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.SetLatest(ctx, resp); err != nil {
		logger.Warn("Gold price cache write failed", logger.Fields{"error": err.Error()})
		// never serve the previous snapshot after a newer one was committed
		if err := s.opts.Cache.Invalidate(ctx); err != nil {
			logger.Warn("Gold price cache invalidation failed", logger.Fields{"error": err.Error()})
		}
	}
}

// GetRecentChanges returns the newest change records across purities
func (s *goldPriceService) GetRecentChanges(limit int) ([]goldprice.ChangeRecord, error) {
	if limit <= 0 {
		limit = s.opts.ChangeLimit
	}
	rows, err := s.changeRepo.FindRecent(limit)
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (s *goldPriceService) GetChangesByPurity(purity goldprice.Purity) ([]goldprice.ChangeRecord, error) {
	if !purity.Valid() {
		return nil, fmt.Errorf("%w: %q", goldprice.ErrUnknownPurity, string(purity))
	}
	rows, err := s.changeRepo.FindByPurity(string(purity))
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

// GetLatestChanges returns the newest record of each purity that has one
func (s *goldPriceService) GetLatestChanges() ([]goldprice.ChangeRecord, error) {
	records := make([]goldprice.ChangeRecord, 0, 3)
	for _, p := range goldprice.Purities() {
		row, err := s.changeRepo.FindLatestByPurity(string(p))
		if err != nil {
			return nil, err
		}
		if row != nil {
			records = append(records, row.ToRecord())
		}
	}
	return records, nil
}

// Validate checks a set against the karat ratios; nil tolerance uses the configured one
func (s *goldPriceService) Validate(set goldprice.PriceSet, tolerance *int64) (goldprice.ValidationResult, error) {
	t := s.tolerance
	if tolerance != nil {
		t = *tolerance
	}
	return goldprice.Validate(set, t)
}

func (s *goldPriceService) Convert(purity goldprice.Purity, price int64) (goldprice.PriceSet, error) {
	return goldprice.FromBase(purity, price)
}

func (s *goldPriceService) toResponse(g *model.GoldPrice) *model.GoldPriceResponse {
	sell := g.SellSet()
	display := make(map[string]string, 3)
	for _, p := range goldprice.Purities() {
		display[string(p)] = util.FormatRupiah(sell.Get(p))
	}
	return &model.GoldPriceResponse{
		ID:          g.ID,
		Sell:        sell,
		Buy:         g.BuySet(),
		SellDisplay: display,
		Source:      g.Source,
		SourceDate:  g.SourceDate.Format(time.RFC3339),
		UpdatedAgo:  goldprice.FormatTimeAgo(s.now(), g.SourceDate),
		Description: g.Description,
	}
}

func (s *goldPriceService) toResponses(prices []model.GoldPrice) []model.GoldPriceResponse {
	out := make([]model.GoldPriceResponse, 0, len(prices))
	for i := range prices {
		out = append(out, *s.toResponse(&prices[i]))
	}
	return out
}

func toRecords(rows []model.GoldPriceChange) []goldprice.ChangeRecord {
	records := make([]goldprice.ChangeRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToRecord())
	}
	return records
}
