package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fajargold/fajargold-backend/config"
	"github.com/fajargold/fajargold-backend/internal/app/repository"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	SourceNameMetalPrice = "metalpriceapi"
	SourceNameGoldAPI    = "goldapi"
	SourceNameDatabase   = "DATABASE_FALLBACK"

	// plausible 24K IDR per gram window for converted quotes
	minPlausiblePerGram = 1000000
	maxPlausiblePerGram = 10000000
)

var gramsPerTroyOunce = decimal.RequireFromString("31.1035")

// SourceQuote is a 24K price per gram from one source
type SourceQuote struct {
	Price24K  int64
	Source    string
	FetchedAt time.Time
	// Retail is set when Price24K is already a sell price and needs no markup
	Retail bool
}

// PriceSource fetches the current 24K price
type PriceSource interface {
	Name() string
	Fetch(ctx context.Context) (*SourceQuote, error)
}

// httpSource holds the shared client and rate limiter of outbound sources
type httpSource struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSource(timeout time.Duration, perSecond float64) httpSource {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return httpSource{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (h httpSource) getJSON(ctx context.Context, rawURL string, header http.Header, dst interface{}) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}
	return nil
}

// MetalPriceAPISource reads XAU rates quoted against IDR from metalpriceapi.com
type MetalPriceAPISource struct {
	httpSource
	apiURL string
	apiKey string
	now    func() time.Time
}

func NewMetalPriceAPISource(apiURL, apiKey string, timeout time.Duration, perSecond float64) *MetalPriceAPISource {
	return &MetalPriceAPISource{
		httpSource: newHTTPSource(timeout, perSecond),
		apiURL:     apiURL,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

func (s *MetalPriceAPISource) Name() string { return SourceNameMetalPrice }

type metalPriceResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

func (s *MetalPriceAPISource) Fetch(ctx context.Context) (*SourceQuote, error) {
	if s.apiURL == "" || s.apiKey == "" {
		return nil, errors.New("metalpriceapi is not configured")
	}

	u, err := url.Parse(s.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid metalpriceapi url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", s.apiKey)
	q.Set("base", "IDR")
	q.Set("currencies", "XAU")
	u.RawQuery = q.Encode()

	var resp metalPriceResponse
	if err := s.getJSON(ctx, u.String(), nil, &resp); err != nil {
		return nil, err
	}

	xau, ok := resp.Rates["XAU"]
	if !ok || xau <= 0 {
		return nil, fmt.Errorf("invalid XAU rate: %v", xau)
	}

	// rates.XAU is troy ounces per rupiah
	perGram := decimal.NewFromInt(1).Div(gramsPerTroyOunce.Mul(decimal.NewFromFloat(xau))).Round(0).IntPart()
	if perGram < minPlausiblePerGram || perGram > maxPlausiblePerGram {
		return nil, fmt.Errorf("implausible gold price %d IDR/gram", perGram)
	}

	return &SourceQuote{Price24K: perGram, Source: s.Name(), FetchedAt: s.now()}, nil
}

// GoldAPISource reads price_gram_24k from a goldapi.io style endpoint
type GoldAPISource struct {
	httpSource
	apiURL string
	apiKey string
	now    func() time.Time
}

func NewGoldAPISource(apiURL, apiKey string, timeout time.Duration, perSecond float64) *GoldAPISource {
	return &GoldAPISource{
		httpSource: newHTTPSource(timeout, perSecond),
		apiURL:     apiURL,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

func (s *GoldAPISource) Name() string { return SourceNameGoldAPI }

type goldAPIResponse struct {
	Timestamp    int64   `json:"timestamp"`
	Metal        string  `json:"metal"`
	Currency     string  `json:"currency"`
	Price        float64 `json:"price"`
	PriceGram24K float64 `json:"price_gram_24k"`
}

func (s *GoldAPISource) Fetch(ctx context.Context) (*SourceQuote, error) {
	if s.apiURL == "" {
		return nil, errors.New("goldapi is not configured")
	}

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("x-access-token", s.apiKey)
	}

	var resp goldAPIResponse
	if err := s.getJSON(ctx, s.apiURL, header, &resp); err != nil {
		return nil, err
	}
	if resp.PriceGram24K <= 0 {
		return nil, fmt.Errorf("invalid price_gram_24k: %v", resp.PriceGram24K)
	}

	fetchedAt := s.now()
	if resp.Timestamp > 0 {
		fetchedAt = time.Unix(resp.Timestamp, 0)
	}
	price := decimal.NewFromFloat(resp.PriceGram24K).Round(0).IntPart()
	return &SourceQuote{Price24K: price, Source: s.Name(), FetchedAt: fetchedAt}, nil
}

// DatabaseSource serves the latest stored 24K sell price
type DatabaseSource struct {
	repo repository.GoldPriceRepository
}

func NewDatabaseSource(repo repository.GoldPriceRepository) *DatabaseSource {
	return &DatabaseSource{repo: repo}
}

func (s *DatabaseSource) Name() string { return SourceNameDatabase }

func (s *DatabaseSource) Fetch(ctx context.Context) (*SourceQuote, error) {
	latest, err := s.repo.FindLatest()
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrGoldPriceNotFound
	}
	return &SourceQuote{
		Price24K:  latest.Sell24K,
		Source:    s.Name(),
		FetchedAt: latest.SourceDate,
		Retail:    true,
	}, nil
}

// SourceChain tries sources in order; the first success wins
type SourceChain struct {
	sources []PriceSource
}

func NewSourceChain(sources ...PriceSource) *SourceChain {
	return &SourceChain{sources: sources}
}

// With returns a new chain with extra fallbacks appended
func (c *SourceChain) With(fallbacks ...PriceSource) *SourceChain {
	sources := make([]PriceSource, 0, len(c.sources)+len(fallbacks))
	sources = append(sources, c.sources...)
	return &SourceChain{sources: append(sources, fallbacks...)}
}

func (c *SourceChain) Name() string { return "chain" }

// Len reports how many sources the chain holds
func (c *SourceChain) Len() int { return len(c.sources) }

func (c *SourceChain) Fetch(ctx context.Context) (*SourceQuote, error) {
	if len(c.sources) == 0 {
		return nil, ErrNoPriceSource
	}

	var errs []error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		quote, err := src.Fetch(ctx)
		if err == nil {
			logger.Debug("Fetched gold price", logger.Fields{"source": src.Name(), "price_24k": quote.Price24K})
			return quote, nil
		}
		logger.Warn("Gold price source failed, trying next", logger.Fields{
			"source": src.Name(),
			"error":  err.Error(),
		})
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w", ErrExternalAPIFailed, errors.Join(errs...))
}

// NewSourcesFromConfig builds the external sources named in order
func NewSourcesFromConfig(cfg config.SourcesConfig, names []string) []PriceSource {
	sources := make([]PriceSource, 0, len(names))
	for _, name := range names {
		switch name {
		case SourceNameMetalPrice:
			sources = append(sources, NewMetalPriceAPISource(cfg.MetalPriceURL, cfg.MetalPriceKey, cfg.Timeout, cfg.RatePerSecond))
		case SourceNameGoldAPI:
			sources = append(sources, NewGoldAPISource(cfg.GoldAPIURL, cfg.GoldAPIKey, cfg.Timeout, cfg.RatePerSecond))
		default:
			logger.Warn("Unknown gold price source ignored", logger.Fields{"source": name})
		}
	}
	return sources
}
