package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	xhttp "DipWatch/pkg/http"
)

const DefaultRestURL = "https://api.binance.com"

// RestSource fetches 24h market overviews from the Binance REST API.
type RestSource struct {
	baseURL string
	client  *xhttp.Client
}

type RestOption func(*RestSource)

func WithBaseURL(u string) RestOption {
	return func(s *RestSource) { s.baseURL = u }
}

func WithHTTPClient(c *xhttp.Client) RestOption {
	return func(s *RestSource) { s.client = c }
}

func NewRestSource(opts ...RestOption) *RestSource {
	s := &RestSource{
		baseURL: DefaultRestURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ticker24h is the /api/v3/ticker/24hr response. Numbers come as strings.
type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
}

func (s *RestSource) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	var raw ticker24h
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         s.baseURL + "/api/v3/ticker/24hr",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
	}

	snap := &models.MarketSnapshot{
		Symbol:      raw.Symbol,
		RetrievedAt: time.Now().UTC(),
	}
	if snap.LastPrice, err = strconv.ParseFloat(raw.LastPrice, 64); err != nil {
		return nil, fmt.Errorf("snapshot %s: lastPrice %q", symbol, raw.LastPrice)
	}
	if snap.Change24h, err = strconv.ParseFloat(raw.PriceChangePercent, 64); err != nil {
		return nil, fmt.Errorf("snapshot %s: priceChangePercent %q", symbol, raw.PriceChangePercent)
	}
	snap.High24h, _ = strconv.ParseFloat(raw.HighPrice, 64)
	snap.Low24h, _ = strconv.ParseFloat(raw.LowPrice, 64)
	snap.Volume24h, _ = strconv.ParseFloat(raw.Volume, 64)
	return snap, nil
}

var _ drepo.SnapshotSource = (*RestSource)(nil)
