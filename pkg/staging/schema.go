package staging

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DDL templates for the staging schema. Rendered with the configured
// database and table names so deployments can relocate the tables.
const (
	createDatabaseDDL = `CREATE DATABASE IF NOT EXISTS {{ .database }}`

	createStagingTableDDL = `
CREATE TABLE IF NOT EXISTS {{ .database }}.{{ .table }} (
    record_hash         String,
    airline             String,
    source_city         String,
    destination_city    String,
    date_of_journey     Date,
    departure_time      String,
    arrival_time        String,
    duration            String,
    total_stops         Int32,
    base_fare           Decimal(12, 2),
    tax_surcharge       Decimal(12, 2),
    total_fare          Decimal(12, 2),
    season              LowCardinality(String),
    is_peak_season      UInt8,
    is_active           UInt8 DEFAULT 1,
    ingestion_timestamp DateTime DEFAULT now(),
    source_file         String
) ENGINE = MergeTree()
ORDER BY (record_hash, date_of_journey)
`

	createQualityTableDDL = `
CREATE TABLE IF NOT EXISTS {{ .database }}.{{ .qualityTable }} (
    run_id       String,
    check_name   LowCardinality(String),
    status       LowCardinality(String),
    rows_checked Int64,
    rows_failed  Int64,
    detail       String,
    checked_at   DateTime DEFAULT now()
) ENGINE = MergeTree()
ORDER BY (checked_at, check_name)
`
)

// renderDDL renders a schema template with Sprig functions available
func renderDDL(ddl string, variables map[string]interface{}) (string, error) {
	tmpl, err := template.New("schema").Funcs(sprig.TxtFuncMap()).Parse(ddl)
	if err != nil {
		return "", fmt.Errorf("failed to parse schema template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("failed to render schema template: %w", err)
	}

	return buf.String(), nil
}

func (c *Config) schemaVariables() map[string]interface{} {
	return map[string]interface{}{
		"database":     c.Database,
		"table":        c.Table,
		"qualityTable": c.QualityTable,
	}
}
