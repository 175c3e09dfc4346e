package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/kpi"
)

// Store persists transformed flight records and KPI tables in PostgreSQL
type Store struct {
	log  logrus.FieldLogger
	pool *pgxpool.Pool
	cfg  *Config
}

// NewStore creates a connection pool and verifies connectivity
func NewStore(ctx context.Context, log logrus.FieldLogger, cfg *Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		log:  log.WithField("component", "analytics"),
		pool: pool,
		cfg:  cfg,
	}, nil
}

// Ping checks connectivity to the analytics database
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the analytics tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply analytics schema: %w", err)
		}
	}

	return nil
}

const upsertQuery = `
	INSERT INTO flights_analytics (
		record_hash, airline, source_city, destination_city, date_of_journey,
		departure_time, arrival_time, duration, total_stops,
		base_fare, tax_surcharge, total_fare, season, is_peak_season,
		version_number, first_seen_at, last_updated_at, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, now(), now(), TRUE)
	ON CONFLICT (record_hash) DO UPDATE SET
		airline          = EXCLUDED.airline,
		source_city      = EXCLUDED.source_city,
		destination_city = EXCLUDED.destination_city,
		date_of_journey  = EXCLUDED.date_of_journey,
		departure_time   = EXCLUDED.departure_time,
		arrival_time     = EXCLUDED.arrival_time,
		duration         = EXCLUDED.duration,
		total_stops      = EXCLUDED.total_stops,
		base_fare        = EXCLUDED.base_fare,
		tax_surcharge    = EXCLUDED.tax_surcharge,
		total_fare       = EXCLUDED.total_fare,
		season           = EXCLUDED.season,
		is_peak_season   = EXCLUDED.is_peak_season,
		version_number   = flights_analytics.version_number + 1,
		last_updated_at  = now(),
		is_active        = TRUE
	RETURNING (xmax = 0)`

// UpsertBatch writes records into flights_analytics. Existing identities
// get their version number incremented and are reactivated; first_seen_at
// is never overwritten. Returns how many rows were inserted vs updated,
// detected via xmax on the returned row.
func (s *Store) UpsertBatch(ctx context.Context, records []flight.AnalyticsRecord) (inserted, updated int64, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	batch := &pgx.Batch{}

	for i := range records {
		r := &records[i]
		batch.Queue(upsertQuery,
			r.Fingerprint, r.Airline, r.Source, r.Destination, r.DateOfJourney,
			r.DepartureTime, r.ArrivalTime, r.Duration, r.Stops,
			r.BaseFare, r.TaxSurcharge, r.TotalFare, r.Season, r.IsPeakSeason,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		var wasInsert bool
		if err := br.QueryRow().Scan(&wasInsert); err != nil {
			return inserted, updated, fmt.Errorf("failed to upsert record: %w", err)
		}

		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}

	return inserted, updated, nil
}

// DeactivateByFingerprint propagates soft deletes from staging
func (s *Store) DeactivateByFingerprint(ctx context.Context, fingerprints []string) (int64, error) {
	if len(fingerprints) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE flights_analytics
		SET is_active = FALSE, last_updated_at = now()
		WHERE is_active AND record_hash = ANY($1)
	`, fingerprints)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate analytics records: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Truncate removes all analytics rows. Used by full refresh loads.
func (s *Store) Truncate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `TRUNCATE flights_analytics`); err != nil {
		return fmt.Errorf("failed to truncate analytics table: %w", err)
	}

	return nil
}

// ActiveRecords reads all active analytics records for KPI computation
func (s *Store) ActiveRecords(ctx context.Context) ([]flight.AnalyticsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT record_hash, airline, source_city, destination_city, date_of_journey,
		       departure_time, arrival_time, duration, total_stops,
		       base_fare, tax_surcharge, total_fare, season, is_peak_season,
		       version_number, first_seen_at, last_updated_at, is_active
		FROM flights_analytics
		WHERE is_active
		ORDER BY record_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics records: %w", err)
	}
	defer rows.Close()

	var records []flight.AnalyticsRecord

	for rows.Next() {
		var r flight.AnalyticsRecord

		if err := rows.Scan(
			&r.Fingerprint, &r.Airline, &r.Source, &r.Destination, &r.DateOfJourney,
			&r.DepartureTime, &r.ArrivalTime, &r.Duration, &r.Stops,
			&r.BaseFare, &r.TaxSurcharge, &r.TotalFare, &r.Season, &r.IsPeakSeason,
			&r.VersionNumber, &r.FirstSeenAt, &r.LastUpdatedAt, &r.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analytics record: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading analytics records: %w", err)
	}

	return records, nil
}

// SaveKPIs replaces the KPI tables with freshly computed results inside a
// single transaction so readers never observe a half-written snapshot.
func (s *Store) SaveKPIs(ctx context.Context, results kpi.Results) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin KPI transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	tables := []string{
		"kpi_airline_fares",
		"kpi_seasonal_fares",
		"kpi_route_popularity",
		"kpi_airline_market_share",
	}
	for _, table := range tables {
		if _, err := tx.Exec(ctx, `TRUNCATE `+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}

	for _, a := range results.Airlines {
		batch.Queue(`
			INSERT INTO kpi_airline_fares
				(airline, avg_base_fare, min_base_fare, max_base_fare,
				 avg_total_fare, min_total_fare, max_total_fare, bookings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.Airline, a.AvgBaseFare, a.MinBaseFare, a.MaxBaseFare,
			a.AvgTotalFare, a.MinTotalFare, a.MaxTotalFare, a.Bookings)
	}

	for _, se := range results.Seasonal {
		batch.Queue(`
			INSERT INTO kpi_seasonal_fares
				(season, is_peak_season, mean_fare, median_fare,
				 min_fare, max_fare, stddev_fare, bookings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			se.Season, se.IsPeakSeason, se.MeanFare, se.MedianFare,
			se.MinFare, se.MaxFare, se.StdDevFare, se.Bookings)
	}

	for _, r := range results.Routes {
		batch.Queue(`
			INSERT INTO kpi_route_popularity
				(source_city, destination_city, bookings, avg_fare, min_fare, max_fare, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.Source, r.Destination, r.Bookings, r.AvgFare, r.MinFare, r.MaxFare, r.Rank)
	}

	for _, m := range results.MarketShare {
		batch.Queue(`
			INSERT INTO kpi_airline_market_share
				(airline, total_bookings, peak_bookings, off_peak_bookings, market_share_pct)
			VALUES ($1, $2, $3, $4, $5)`,
			m.Airline, m.TotalBookings, m.PeakBookings, m.OffPeakBookings, m.MarketSharePct)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)

		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert KPI row: %w", err)
			}
		}

		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to flush KPI batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ExecutionEntry is one pipeline run recorded in the execution log
type ExecutionEntry struct {
	RunID           string
	Status          string
	LoadMode        string
	StartedAt       time.Time
	FinishedAt      time.Time
	RowsIngested    int64
	RowsInserted    int64
	RowsUpdated     int64
	RowsUnchanged   int64
	RowsDeactivated int64
	RowsFailed      int64
	Error           string
}

// Duration returns the wall-clock duration of the run
func (e *ExecutionEntry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// LogExecution records a pipeline run summary
func (s *Store) LogExecution(ctx context.Context, entry ExecutionEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_execution_log
			(run_id, status, load_mode, started_at, finished_at,
			 rows_ingested, rows_inserted, rows_updated, rows_unchanged,
			 rows_deactivated, rows_failed, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO NOTHING
	`, entry.RunID, entry.Status, entry.LoadMode, entry.StartedAt, entry.FinishedAt,
		entry.RowsIngested, entry.RowsInserted, entry.RowsUpdated, entry.RowsUnchanged,
		entry.RowsDeactivated, entry.RowsFailed, entry.Error)
	if err != nil {
		return fmt.Errorf("failed to log execution: %w", err)
	}

	return nil
}

// RecentExecutions returns runs started at or after the given time,
// newest first
func (s *Store) RecentExecutions(ctx context.Context, since time.Time) ([]ExecutionEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, status, load_mode, started_at, finished_at,
		       rows_ingested, rows_inserted, rows_updated, rows_unchanged,
		       rows_deactivated, rows_failed, error
		FROM pipeline_execution_log
		WHERE started_at >= $1
		ORDER BY started_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read execution log: %w", err)
	}
	defer rows.Close()

	var entries []ExecutionEntry

	for rows.Next() {
		var e ExecutionEntry

		if err := rows.Scan(
			&e.RunID, &e.Status, &e.LoadMode, &e.StartedAt, &e.FinishedAt,
			&e.RowsIngested, &e.RowsInserted, &e.RowsUpdated, &e.RowsUnchanged,
			&e.RowsDeactivated, &e.RowsFailed, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading execution log: %w", err)
	}

	return entries, nil
}

// Stats summarizes the analytics store for health monitoring
type Stats struct {
	ActiveRows    int64
	TotalRows     int64
	LastUpdatedAt time.Time
	KPIRowCounts  map[string]int64
}

// TableStats returns row counts and freshness information
func (s *Store) TableStats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	stats := Stats{KPIRowCounts: make(map[string]int64)}

	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE is_active),
		       count(*),
		       coalesce(max(last_updated_at), 'epoch'::timestamptz)
		FROM flights_analytics
	`).Scan(&stats.ActiveRows, &stats.TotalRows, &stats.LastUpdatedAt)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read analytics stats: %w", err)
	}

	kpiTables := []string{
		"kpi_airline_fares",
		"kpi_seasonal_fares",
		"kpi_route_popularity",
		"kpi_airline_market_share",
	}
	for _, table := range kpiTables {
		var count int64
		if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&count); err != nil {
			return Stats{}, fmt.Errorf("failed to count %s: %w", table, err)
		}

		stats.KPIRowCounts[table] = count
	}

	return stats, nil
}
