package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	pkgkafka "DipWatch/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages and feeds them to the engine.
// Alternate ingest path for deployments where a collector already publishes
// normalized ticks to Kafka instead of each instance holding a WebSocket.
type KafkaTicksHandler struct {
	topic   string
	engine  *TechnicalEngine
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, engine *TechnicalEngine, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, engine: engine, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t (ms), p, v, b, a}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		P      float64 `json:"p"`
		V      float64 `json:"v"`
		B      float64 `json:"b"`
		A      float64 `json:"a"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		if h.metrics != nil {
			h.metrics.RecordDroppedTick("parse")
		}
		return fmt.Errorf("tick unmarshal: %w", err)
	}
	if m.Symbol == "" || m.T <= 0 {
		if h.metrics != nil {
			h.metrics.RecordDroppedTick("parse")
		}
		return fmt.Errorf("tick missing symbol or timestamp")
	}
	if m.T < 1e11 { // seconds, normalize to ms
		m.T = m.T * 1000
	}

	if h.metrics != nil {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.T)).Seconds())
		h.metrics.RecordTick("kafka", m.Symbol)
		h.metrics.RecordLastPrice(m.Symbol, m.P)
	}

	h.engine.Ingest(&models.Tick{
		Symbol:    m.Symbol,
		Price:     m.P,
		Volume:    m.V,
		Bid:       m.B,
		Ask:       m.A,
		Timestamp: m.T,
		Source:    "kafka",
	})
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
