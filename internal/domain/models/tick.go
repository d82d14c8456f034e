package models

// Tick is one price update for a symbol from the upstream feed.
// Immutable once created.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume,omitempty"` // 24h rolling volume when trade volume is unavailable
	Bid       float64 `json:"bid,omitempty"`
	Ask       float64 `json:"ask,omitempty"`
	Timestamp int64   `json:"timestamp"` // unix ms
	Source    string  `json:"source"`
}

// Candle is an OHLCV summary of all ticks within one fixed-duration bucket.
// Mutated only while it is the most recent bucket of its series.
type Candle struct {
	BucketStart int64   `json:"bucket_start"` // unix ms, aligned to the timeframe
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	TradeCount  int     `json:"trade_count"`
}
