package analytics

// Schema applied by EnsureSchema. The analytics table keys on the record
// fingerprint so the upsert path can increment version_number in place.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS flights_analytics (
		record_hash      TEXT PRIMARY KEY,
		airline          TEXT NOT NULL,
		source_city      TEXT NOT NULL,
		destination_city TEXT NOT NULL,
		date_of_journey  DATE NOT NULL,
		departure_time   TEXT NOT NULL DEFAULT '',
		arrival_time     TEXT NOT NULL DEFAULT '',
		duration         TEXT NOT NULL DEFAULT '',
		total_stops      INTEGER NOT NULL DEFAULT 0,
		base_fare        NUMERIC(12,2) NOT NULL,
		tax_surcharge    NUMERIC(12,2) NOT NULL,
		total_fare       NUMERIC(12,2) NOT NULL,
		season           TEXT NOT NULL DEFAULT '',
		is_peak_season   BOOLEAN NOT NULL DEFAULT FALSE,
		version_number   INTEGER NOT NULL DEFAULT 1,
		first_seen_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_active        BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_flights_analytics_active
		ON flights_analytics (is_active)`,

	`CREATE INDEX IF NOT EXISTS idx_flights_analytics_route
		ON flights_analytics (source_city, destination_city)`,

	`CREATE TABLE IF NOT EXISTS kpi_airline_fares (
		airline        TEXT PRIMARY KEY,
		avg_base_fare  NUMERIC(12,2) NOT NULL,
		min_base_fare  NUMERIC(12,2) NOT NULL,
		max_base_fare  NUMERIC(12,2) NOT NULL,
		avg_total_fare NUMERIC(12,2) NOT NULL,
		min_total_fare NUMERIC(12,2) NOT NULL,
		max_total_fare NUMERIC(12,2) NOT NULL,
		bookings       BIGINT NOT NULL,
		computed_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS kpi_seasonal_fares (
		season         TEXT NOT NULL,
		is_peak_season BOOLEAN NOT NULL,
		mean_fare      NUMERIC(12,2) NOT NULL,
		median_fare    NUMERIC(12,2) NOT NULL,
		min_fare       NUMERIC(12,2) NOT NULL,
		max_fare       NUMERIC(12,2) NOT NULL,
		stddev_fare    NUMERIC(12,2) NOT NULL,
		bookings       BIGINT NOT NULL,
		computed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (season, is_peak_season)
	)`,

	`CREATE TABLE IF NOT EXISTS kpi_route_popularity (
		source_city      TEXT NOT NULL,
		destination_city TEXT NOT NULL,
		bookings         BIGINT NOT NULL,
		avg_fare         NUMERIC(12,2) NOT NULL,
		min_fare         NUMERIC(12,2) NOT NULL,
		max_fare         NUMERIC(12,2) NOT NULL,
		rank             INTEGER NOT NULL,
		computed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (source_city, destination_city)
	)`,

	`CREATE TABLE IF NOT EXISTS kpi_airline_market_share (
		airline           TEXT PRIMARY KEY,
		total_bookings    BIGINT NOT NULL,
		peak_bookings     BIGINT NOT NULL,
		off_peak_bookings BIGINT NOT NULL,
		market_share_pct  NUMERIC(5,2) NOT NULL,
		computed_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS pipeline_execution_log (
		run_id           TEXT PRIMARY KEY,
		status           TEXT NOT NULL,
		load_mode        TEXT NOT NULL,
		started_at       TIMESTAMPTZ NOT NULL,
		finished_at      TIMESTAMPTZ NOT NULL,
		rows_ingested    BIGINT NOT NULL DEFAULT 0,
		rows_inserted    BIGINT NOT NULL DEFAULT 0,
		rows_updated     BIGINT NOT NULL DEFAULT 0,
		rows_unchanged   BIGINT NOT NULL DEFAULT 0,
		rows_deactivated BIGINT NOT NULL DEFAULT 0,
		rows_failed      BIGINT NOT NULL DEFAULT 0,
		error            TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_execution_log_started
		ON pipeline_execution_log (started_at DESC)`,
}
