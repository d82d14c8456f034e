package models

// Requests for the technicals HTTP endpoints. Defined in domain for consistency and reuse.

type TechnicalsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1m" validate:"oneof=1s 5s 15s 1m 5m 15m 1h 4h 1d"`
}

type SignalsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1m" validate:"oneof=1s 5s 15s 1m 5m 15m 1h 4h 1d"`
}

type StatusRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SnapshotRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type CacheInvalidateRequest struct {
	Category string `query:"category" json:"category" validate:"required"`
}
