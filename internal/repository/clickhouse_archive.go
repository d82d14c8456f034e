package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	pkgch "DipWatch/pkg/clickhouse"
)

// ClickHouseTickArchive appends raw accepted ticks to a ClickHouse table for
// offline dashboards. Write-only from the service's point of view.
type ClickHouseTickArchive struct {
	client *pkgch.Client
	table  string
}

func NewClickHouseTickArchive(client *pkgch.Client, table string) drepo.TickArchive {
	if table == "" {
		table = "ticks_raw"
	}
	return &ClickHouseTickArchive{client: client, table: table}
}

func (a *ClickHouseTickArchive) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts     DateTime64(3),
		symbol LowCardinality(String),
		price  Float64,
		volume Float64,
		bid    Float64,
		ask    Float64,
		source LowCardinality(String)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 30 DAY`, a.table)
	return a.client.InitSchema(ctx, []string{stmt})
}

func (a *ClickHouseTickArchive) Archive(ctx context.Context, t *models.Tick) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, bid, ask, source) VALUES (?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err := a.client.DB().ExecContext(ctx, q,
		time.UnixMilli(t.Timestamp),
		t.Symbol,
		t.Price,
		t.Volume,
		t.Bid,
		t.Ask,
		t.Source,
	)
	return err
}

func (a *ClickHouseTickArchive) ArchiveBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// multi-row VALUES keeps round-trips down; 2000 rows per statement
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.UnixMilli(t.Timestamp),
				t.Symbol,
				t.Price,
				t.Volume,
				t.Bid,
				t.Ask,
				t.Source,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, bid, ask, source) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive batch: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseTickArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

func (a *ClickHouseTickArchive) Close() error {
	return nil // pool is owned by pkg/clickhouse
}
