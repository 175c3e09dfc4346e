package staging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/incremental"
)

// Store persists staged flight records in ClickHouse
type Store struct {
	log  logrus.FieldLogger
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore opens a ClickHouse connection for the staging store
func NewStore(log logrus.FieldLogger, cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug:       cfg.Debug,
		DialTimeout: 10 * time.Second,
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	return &Store{
		log:  log.WithField("component", "staging"),
		conn: conn,
		cfg:  cfg,
	}, nil
}

// Ping checks connectivity to the staging database
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the staging database and tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	vars := s.cfg.schemaVariables()

	for _, ddl := range []string{createDatabaseDDL, createStagingTableDDL, createQualityTableDDL} {
		query, err := renderDDL(ddl, vars)
		if err != nil {
			return err
		}

		if err := s.conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to apply staging schema: %w", err)
		}
	}

	return nil
}

// ReadActiveFingerprints loads the set of record hashes currently active
// in staging. This is the baseline incremental classification runs against.
func (s *Store) ReadActiveFingerprints(ctx context.Context) (incremental.Baseline, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT DISTINCT record_hash FROM %s.%s WHERE is_active = 1`,
		s.cfg.Database, s.cfg.Table,
	)

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read active fingerprints: %w", err)
	}
	defer rows.Close()

	baseline := incremental.Baseline{}

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}

		baseline[hash] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading fingerprints: %w", err)
	}

	return baseline, nil
}

// InsertBatch appends staged records in a single native batch
func (s *Store) InsertBatch(ctx context.Context, records []flight.StagedRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.InsertTimeout)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s.%s (
			record_hash, airline, source_city, destination_city, date_of_journey,
			departure_time, arrival_time, duration, total_stops,
			base_fare, tax_surcharge, total_fare, season, is_peak_season,
			is_active, ingestion_timestamp, source_file
		)
	`, s.cfg.Database, s.cfg.Table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range records {
		r := &records[i]

		if err := batch.Append(
			r.Fingerprint,
			r.Airline,
			r.Source,
			r.Destination,
			r.DateOfJourney,
			r.DepartureTime,
			r.ArrivalTime,
			r.Duration,
			int32(r.Stops),
			r.BaseFare,
			r.TaxSurcharge,
			r.TotalFare,
			r.Season,
			boolToUInt8(r.IsPeakSeason),
			boolToUInt8(r.IsActive),
			r.IngestedAt,
			r.SourceFile,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// Deactivate soft-deletes the given record hashes and returns the number
// of rows that were active before the mutation was issued. ClickHouse
// mutations are asynchronous so the count is taken up front.
func (s *Store) Deactivate(ctx context.Context, fingerprints []string) (int64, error) {
	if len(fingerprints) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	var affected uint64

	countQuery := fmt.Sprintf(
		`SELECT count() FROM %s.%s WHERE is_active = 1 AND record_hash IN (?)`,
		s.cfg.Database, s.cfg.Table,
	)
	if err := s.conn.QueryRow(ctx, countQuery, fingerprints).Scan(&affected); err != nil {
		return 0, fmt.Errorf("failed to count rows for deactivation: %w", err)
	}

	mutation := fmt.Sprintf(
		`ALTER TABLE %s.%s UPDATE is_active = 0 WHERE is_active = 1 AND record_hash IN (?)`,
		s.cfg.Database, s.cfg.Table,
	)
	if err := s.conn.Exec(ctx, mutation, fingerprints); err != nil {
		return 0, fmt.Errorf("failed to deactivate staged records: %w", err)
	}

	return int64(affected), nil //nolint:gosec // row counts fit in int64
}

// Truncate removes all staged rows. Used by full refresh loads.
func (s *Store) Truncate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`TRUNCATE TABLE IF EXISTS %s.%s`, s.cfg.Database, s.cfg.Table)
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate staging table: %w", err)
	}

	return nil
}

// ActiveRecords reads all active staged records for downstream transformation
func (s *Store) ActiveRecords(ctx context.Context) ([]flight.StagedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT record_hash, airline, source_city, destination_city, date_of_journey,
		       departure_time, arrival_time, duration, total_stops,
		       base_fare, tax_surcharge, total_fare, season, is_peak_season,
		       ingestion_timestamp, source_file
		FROM %s.%s
		WHERE is_active = 1
		ORDER BY record_hash
	`, s.cfg.Database, s.cfg.Table)

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read active records: %w", err)
	}
	defer rows.Close()

	var records []flight.StagedRecord

	for rows.Next() {
		var (
			r          flight.StagedRecord
			stops      int32
			isPeak     uint8
			dateOfTrip time.Time
		)

		if err := rows.Scan(
			&r.Fingerprint, &r.Airline, &r.Source, &r.Destination, &dateOfTrip,
			&r.DepartureTime, &r.ArrivalTime, &r.Duration, &stops,
			&r.BaseFare, &r.TaxSurcharge, &r.TotalFare, &r.Season, &isPeak,
			&r.IngestedAt, &r.SourceFile,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staged record: %w", err)
		}

		r.DateOfJourney = dateOfTrip
		r.Stops = int(stops)
		r.IsPeakSeason = isPeak == 1
		r.IsActive = true

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading staged records: %w", err)
	}

	return records, nil
}

// QualityEntry is one data quality check outcome recorded against a run
type QualityEntry struct {
	RunID       string
	CheckName   string
	Status      string
	RowsChecked int64
	RowsFailed  int64
	Detail      string
}

// LogQualityChecks records data quality check outcomes for a pipeline run
func (s *Store) LogQualityChecks(ctx context.Context, entries []QualityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.InsertTimeout)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s.%s (run_id, check_name, status, rows_checked, rows_failed, detail, checked_at)
	`, s.cfg.Database, s.cfg.QualityTable))
	if err != nil {
		return fmt.Errorf("failed to prepare quality batch: %w", err)
	}

	now := time.Now().UTC()

	for _, e := range entries {
		if err := batch.Append(
			e.RunID,
			e.CheckName,
			strings.ToUpper(e.Status),
			e.RowsChecked,
			e.RowsFailed,
			e.Detail,
			now,
		); err != nil {
			return fmt.Errorf("failed to append quality entry: %w", err)
		}
	}

	return batch.Send()
}

// Stats summarizes the state of the staging table for health monitoring
type Stats struct {
	ActiveRows     int64
	TotalRows      int64
	LastIngestedAt time.Time
}

// TableStats returns row counts and the most recent ingestion timestamp
func (s *Store) TableStats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT countIf(is_active = 1), count(), max(ingestion_timestamp)
		FROM %s.%s
	`, s.cfg.Database, s.cfg.Table)

	var (
		active uint64
		total  uint64
		last   time.Time
	)

	if err := s.conn.QueryRow(ctx, query).Scan(&active, &total, &last); err != nil {
		return Stats{}, fmt.Errorf("failed to read staging stats: %w", err)
	}

	return Stats{
		ActiveRows:     int64(active), //nolint:gosec // row counts fit in int64
		TotalRows:      int64(total),  //nolint:gosec // row counts fit in int64
		LastIngestedAt: last,
	}, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}
