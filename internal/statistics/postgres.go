package statistics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datalexum/aquawiz-monitor/internal/database"
	"github.com/rs/zerolog/log"
)

// MigrationSQL creates the statistics schema. It is idempotent and runs
// at every startup.
const MigrationSQL = `
	CREATE TABLE IF NOT EXISTS statistics_meta (
		statistic_id VARCHAR(255) PRIMARY KEY,
		source       VARCHAR(64)  NOT NULL,
		name         VARCHAR(255) NOT NULL,
		unit         VARCHAR(32)  NOT NULL,
		has_mean     BOOLEAN      NOT NULL,
		has_sum      BOOLEAN      NOT NULL,
		updated_at   TIMESTAMPTZ  DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS statistics (
		statistic_id VARCHAR(255)     NOT NULL REFERENCES statistics_meta(statistic_id),
		start        TIMESTAMPTZ      NOT NULL,
		mean         DOUBLE PRECISION NOT NULL,
		sum          DOUBLE PRECISION,
		created_at   TIMESTAMPTZ      DEFAULT NOW(),
		PRIMARY KEY (statistic_id, start)
	);

	CREATE INDEX IF NOT EXISTS idx_statistics_start ON statistics(start);
`

// PostgresSink persists statistics series to PostgreSQL. Each
// AddStatistics call upserts the series metadata and writes all points in
// one transaction, with per-point upserts keyed on (statistic_id, start)
// so repeated backfills stay idempotent.
type PostgresSink struct {
	db *database.PostgresDB
}

// NewPostgresSink creates a sink backed by the given database. The caller
// is expected to have run MigrationSQL already.
func NewPostgresSink(db *database.PostgresDB) *PostgresSink {
	return &PostgresSink{db: db}
}

// AddStatistics implements Sink.
func (s *PostgresSink) AddStatistics(ctx context.Context, meta Metadata, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		metaQuery := `
			INSERT INTO statistics_meta (statistic_id, source, name, unit, has_mean, has_sum)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (statistic_id)
			DO UPDATE SET
				name = EXCLUDED.name,
				unit = EXCLUDED.unit,
				has_mean = EXCLUDED.has_mean,
				has_sum = EXCLUDED.has_sum,
				updated_at = NOW()
		`
		if _, err := tx.ExecContext(ctx, metaQuery,
			meta.StatisticID, meta.Source, meta.Name, meta.Unit, meta.HasMean, meta.HasSum,
		); err != nil {
			return fmt.Errorf("failed to upsert statistics metadata: %w", err)
		}

		pointQuery := `
			INSERT INTO statistics (statistic_id, start, mean, sum)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (statistic_id, start)
			DO UPDATE SET mean = EXCLUDED.mean, sum = EXCLUDED.sum
		`
		for _, p := range points {
			var sum sql.NullFloat64
			if p.Sum != nil {
				sum = sql.NullFloat64{Float64: *p.Sum, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, pointQuery, meta.StatisticID, p.Start, p.Mean, sum); err != nil {
				return fmt.Errorf("failed to insert statistics point: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("statistic_id", meta.StatisticID).
		Int("points", len(points)).
		Msg("Persisted statistics series")

	return nil
}
