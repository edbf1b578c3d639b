package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fajargold/fajargold-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetalPriceAPISource_Fetch(t *testing.T) {
	// 1 / (31.1035 * 2.0094e-8) is roughly 1.6 million rupiah per gram
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "IDR", r.URL.Query().Get("base"))
		fmt.Fprint(w, `{"success":true,"base":"IDR","rates":{"XAU":2.0094e-8}}`)
	}))
	defer server.Close()

	src := NewMetalPriceAPISource(server.URL, "secret", time.Second, 0)
	quote, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1600000, quote.Price24K, 100)
	assert.Equal(t, SourceNameMetalPrice, quote.Source)
	assert.False(t, quote.Retail)
}

func TestMetalPriceAPISource_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"implausible price", http.StatusOK, `{"success":true,"rates":{"XAU":1e-6}}`},
		{"missing rate", http.StatusOK, `{"success":true,"rates":{}}`},
		{"server error", http.StatusInternalServerError, `{"error":"quota"}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewMetalPriceAPISource(server.URL, "secret", time.Second, 0).Fetch(context.Background())
			assert.Error(t, err)
		})
	}

	_, err := NewMetalPriceAPISource("", "", time.Second, 0).Fetch(context.Background())
	assert.Error(t, err)
}

func TestGoldAPISource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("x-access-token"))
		fmt.Fprint(w, `{"timestamp":1741600800,"metal":"XAU","currency":"IDR","price_gram_24k":1650000.5}`)
	}))
	defer server.Close()

	quote, err := NewGoldAPISource(server.URL, "token", time.Second, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1650001), quote.Price24K)
	assert.Equal(t, time.Unix(1741600800, 0), quote.FetchedAt)
}

func TestSourceChain_FirstSuccessWins(t *testing.T) {
	down := &fakeSource{name: "down", err: errors.New("connection refused")}
	up := &fakeSource{name: "up", quote: &SourceQuote{Price24K: 1700000, Source: "up"}}
	never := &fakeSource{name: "never", quote: &SourceQuote{Price24K: 1, Source: "never"}}

	quote, err := NewSourceChain(down, up, never).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "up", quote.Source)
	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 0, never.calls)
}

func TestSourceChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewSourceChain(
		&fakeSource{name: "a", err: errors.New("timeout")},
		&fakeSource{name: "b", err: boom},
	)

	_, err := chain.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrExternalAPIFailed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: timeout")

	_, err = NewSourceChain().Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoPriceSource)
}

func TestSourceChain_CanceledContext(t *testing.T) {
	src := &fakeSource{name: "a", quote: &SourceQuote{Price24K: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSourceChain(src).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestSourceChain_With(t *testing.T) {
	base := NewSourceChain(&fakeSource{name: "a"})
	extended := base.With(&fakeSource{name: "b"})
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
}

func TestNewSourcesFromConfig(t *testing.T) {
	sources := NewSourcesFromConfig(config.SourcesConfig{Timeout: time.Second}, []string{"goldapi", "unknown", "metalpriceapi"})
	require.Len(t, sources, 2)
	assert.Equal(t, SourceNameGoldAPI, sources[0].Name())
	assert.Equal(t, SourceNameMetalPrice, sources[1].Name())
}
