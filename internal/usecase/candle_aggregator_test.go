package usecase

import (
	"testing"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
)

func tick(ts int64, price float64) *models.Tick {
	return &models.Tick{Symbol: "BTCUSDT", Price: price, Timestamp: ts, Source: "test"}
}

func TestAggregatorBucketsTicks(t *testing.T) {
	agg := NewCandleAggregator(100, nil)

	agg.OnTick("BTCUSDT", tick(0, 100), drepo.TF1m)
	agg.OnTick("BTCUSDT", tick(30000, 101), drepo.TF1m)
	agg.OnTick("BTCUSDT", tick(61000, 99), drepo.TF1m)

	series := agg.Series("BTCUSDT", drepo.TF1m)
	if len(series) != 2 {
		t.Fatalf("series length = %d, want 2", len(series))
	}

	first := series[0]
	if first.BucketStart != 0 || first.Open != 100 || first.High != 101 || first.Low != 100 || first.Close != 101 {
		t.Fatalf("first candle = %+v", first)
	}
	if first.TradeCount != 2 {
		t.Fatalf("first candle trade count = %d, want 2", first.TradeCount)
	}

	second := series[1]
	if second.BucketStart != 60000 {
		t.Fatalf("second bucket = %d, want 60000", second.BucketStart)
	}
	if second.Open != 99 || second.High != 99 || second.Low != 99 || second.Close != 99 {
		t.Fatalf("second candle = %+v", second)
	}
}

func TestAggregatorBucketAlignment(t *testing.T) {
	agg := NewCandleAggregator(100, nil)
	for _, tf := range drepo.AllTimeframes() {
		agg.OnTick("ETHUSDT", tick(1_700_000_123_456, 2000), tf)
		series := agg.Series("ETHUSDT", tf)
		if len(series) != 1 {
			t.Fatalf("%s: series length = %d", tf, len(series))
		}
		if series[0].BucketStart%tf.DurationMs() != 0 {
			t.Fatalf("%s: bucket %d not aligned to %dms", tf, series[0].BucketStart, tf.DurationMs())
		}
	}
}

func TestAggregatorCapacityEvictsOldest(t *testing.T) {
	agg := NewCandleAggregator(3, nil)
	for i := int64(0); i < 5; i++ {
		agg.OnTick("BTCUSDT", tick(i*60000, float64(100+i)), drepo.TF1m)
	}
	series := agg.Series("BTCUSDT", drepo.TF1m)
	if len(series) != 3 {
		t.Fatalf("series length = %d, want capacity 3", len(series))
	}
	if series[0].BucketStart != 2*60000 {
		t.Fatalf("oldest surviving bucket = %d, want 120000", series[0].BucketStart)
	}
}

func TestAggregatorDropsLateTicks(t *testing.T) {
	agg := NewCandleAggregator(100, nil)
	agg.OnTick("BTCUSDT", tick(120000, 100), drepo.TF1m)
	agg.OnTick("BTCUSDT", tick(30000, 999), drepo.TF1m) // two buckets late

	series := agg.Series("BTCUSDT", drepo.TF1m)
	if len(series) != 1 {
		t.Fatalf("late tick must not create a candle, length = %d", len(series))
	}
	if series[0].Close != 100 || series[0].TradeCount != 1 {
		t.Fatalf("late tick must not modify history: %+v", series[0])
	}
}

func TestAggregatorVolumeApproximation(t *testing.T) {
	agg := NewCandleAggregator(100, nil)
	tk := tick(0, 100)
	tk.Volume = 1440
	agg.OnTick("BTCUSDT", tk, drepo.TF1m)
	agg.OnTick("BTCUSDT", tk, drepo.TF1m)

	series := agg.Series("BTCUSDT", drepo.TF1m)
	if series[0].Volume != 2 {
		t.Fatalf("volume = %v, want 2 (24h figure / 1440 per tick)", series[0].Volume)
	}
}

func TestAggregatorSeriesAreIndependent(t *testing.T) {
	agg := NewCandleAggregator(100, nil)
	agg.OnTick("BTCUSDT", tick(0, 100), drepo.TF1m)
	agg.OnTick("BTCUSDT", tick(0, 100), drepo.TF5m)

	if n := agg.Len("BTCUSDT", drepo.TF1m); n != 1 {
		t.Fatalf("1m len = %d", n)
	}
	if n := agg.Len("BTCUSDT", drepo.TF5m); n != 1 {
		t.Fatalf("5m len = %d", n)
	}
	if n := agg.Len("ETHUSDT", drepo.TF1m); n != 0 {
		t.Fatalf("unknown symbol len = %d", n)
	}
}
