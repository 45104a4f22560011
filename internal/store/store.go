package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/models"
)

// BatchSize is the number of rows queued per pgx batch
const BatchSize = 1000

// Import log statuses
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS repair_aggregate (
	locomotive_series    TEXT NOT NULL,
	locomotive_number    TEXT NOT NULL,
	total_repairs        INTEGER NOT NULL DEFAULT 0,
	repair_type_1        INTEGER NOT NULL DEFAULT 0,
	repair_type_2        INTEGER NOT NULL DEFAULT 0,
	repair_type_3        INTEGER NOT NULL DEFAULT 0,
	turning_count        INTEGER NOT NULL DEFAULT 0,
	unique_service_dates INTEGER NOT NULL DEFAULT 0,
	first_repair_date    TEXT,
	last_repair_date     TEXT,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (locomotive_series, locomotive_number)
);

CREATE TABLE IF NOT EXISTS station (
	code      TEXT PRIMARY KEY,
	name      TEXT,
	latitude  DOUBLE PRECISION,
	longitude DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS prediction_log (
	batch_id        UUID PRIMARY KEY,
	item_count      INTEGER NOT NULL,
	mean_prediction DOUBLE PRECISION NOT NULL,
	cache_hit       BOOLEAN NOT NULL DEFAULT FALSE,
	latency_ms      BIGINT NOT NULL,
	model_version   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS import_log (
	id           BIGSERIAL PRIMARY KEY,
	source       TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ,
	status       TEXT NOT NULL,
	message      TEXT
);
`

// Store persists repair history, stations and served batches in Postgres
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New wraps a connection pool
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// EnsureSchema creates the tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRepairAggregates upserts aggregates in a single transaction
func (s *Store) SaveRepairAggregates(ctx context.Context, aggs []models.RepairAggregate) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range Chunks(len(aggs), BatchSize) {
			batch := &pgx.Batch{}
			for _, agg := range aggs[r.Start:r.End] {
				batch.Queue(`
					INSERT INTO repair_aggregate (
						locomotive_series, locomotive_number, total_repairs,
						repair_type_1, repair_type_2, repair_type_3,
						turning_count, unique_service_dates,
						first_repair_date, last_repair_date
					) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
					ON CONFLICT (locomotive_series, locomotive_number) DO UPDATE
					SET total_repairs = EXCLUDED.total_repairs,
					    repair_type_1 = EXCLUDED.repair_type_1,
					    repair_type_2 = EXCLUDED.repair_type_2,
					    repair_type_3 = EXCLUDED.repair_type_3,
					    turning_count = EXCLUDED.turning_count,
					    unique_service_dates = EXCLUDED.unique_service_dates,
					    first_repair_date = EXCLUDED.first_repair_date,
					    last_repair_date = EXCLUDED.last_repair_date,
					    updated_at = NOW()
				`, agg.LocomotiveSeries, agg.LocomotiveNumber, agg.TotalRepairs,
					agg.RepairType1, agg.RepairType2, agg.RepairType3,
					agg.TurningCount, agg.UniqueServiceDates,
					nullable(agg.FirstRepairDate), nullable(agg.LastRepairDate))
			}
			if err := sendBatch(ctx, tx, batch); err != nil {
				return fmt.Errorf("failed to insert repair aggregates at %d: %w", r.Start, err)
			}
		}
		s.logger.Info("saved repair aggregates", zap.Int("count", len(aggs)))
		return nil
	})
}

// SaveStations upserts the station directory in a single transaction
func (s *Store) SaveStations(ctx context.Context, stations []models.Station) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range Chunks(len(stations), BatchSize) {
			batch := &pgx.Batch{}
			for _, st := range stations[r.Start:r.End] {
				batch.Queue(`
					INSERT INTO station (code, name, latitude, longitude)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (code) DO UPDATE
					SET name = EXCLUDED.name,
					    latitude = EXCLUDED.latitude,
					    longitude = EXCLUDED.longitude
				`, st.Code, st.Name, st.Latitude, st.Longitude)
			}
			if err := sendBatch(ctx, tx, batch); err != nil {
				return fmt.Errorf("failed to insert stations at %d: %w", r.Start, err)
			}
		}
		s.logger.Info("saved stations", zap.Int("count", len(stations)))
		return nil
	})
}

// LoadRepairAggregates reads every stored aggregate
func (s *Store) LoadRepairAggregates(ctx context.Context) ([]models.RepairAggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT locomotive_series, locomotive_number, total_repairs,
		       repair_type_1, repair_type_2, repair_type_3,
		       turning_count, unique_service_dates,
		       COALESCE(first_repair_date, ''), COALESCE(last_repair_date, '')
		FROM repair_aggregate
		ORDER BY locomotive_series, locomotive_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query repair aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []models.RepairAggregate
	for rows.Next() {
		var agg models.RepairAggregate
		if err := rows.Scan(
			&agg.LocomotiveSeries, &agg.LocomotiveNumber, &agg.TotalRepairs,
			&agg.RepairType1, &agg.RepairType2, &agg.RepairType3,
			&agg.TurningCount, &agg.UniqueServiceDates,
			&agg.FirstRepairDate, &agg.LastRepairDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan repair aggregate: %w", err)
		}
		aggs = append(aggs, agg)
	}

	return aggs, rows.Err()
}

// CreateImportLog opens a running import entry
func (s *Store) CreateImportLog(ctx context.Context, source string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO import_log (source, status)
		VALUES ($1, $2)
		RETURNING id
	`, source, StatusRunning).Scan(&id)

	return id, err
}

// UpdateImportLog closes an import entry
func (s *Store) UpdateImportLog(ctx context.Context, id int64, status, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, id, status, message)

	return err
}

// LogPrediction records a served batch
func (s *Store) LogPrediction(ctx context.Context, entry models.PredictionLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prediction_log (
			batch_id, item_count, mean_prediction, cache_hit,
			latency_ms, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.BatchID, entry.ItemCount, entry.MeanPrediction, entry.CacheHit,
		entry.LatencyMs, entry.ModelVersion, entry.CreatedAt)

	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Range is a half-open slice window
type Range struct {
	Start, End int
}

// Chunks splits n items into windows of at most size
func Chunks(n, size int) []Range {
	if size <= 0 {
		size = BatchSize
	}
	var out []Range
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Range{Start: start, End: end})
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
