package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fareflow/fareflow/pkg/fingerprint"
	"github.com/fareflow/fareflow/pkg/flight"
	"github.com/fareflow/fareflow/pkg/transform"
)

// Static errors for CSV reading
var (
	ErrEmptyFile         = errors.New("csv file has no header row")
	ErrMissingColumns    = errors.New("csv file is missing required columns")
	ErrNoParsableRecords = errors.New("csv file produced no parsable records")
)

// Canonical column names after header normalization
const (
	colAirline      = "airline"
	colSource       = "source"
	colDestination  = "destination"
	colDate         = "date_of_journey"
	colDeparture    = "dep_time"
	colArrival      = "arrival_time"
	colDuration     = "duration"
	colStops        = "total_stops"
	colBaseFare     = "base_fare"
	colTaxSurcharge = "tax_surcharge"
	colTotalFare    = "total_fare"
)

// headerAliases maps the column spellings seen in source exports to the
// canonical names used internally
var headerAliases = map[string]string{
	"airline":          colAirline,
	"carrier":          colAirline,
	"source":           colSource,
	"source_city":      colSource,
	"origin":           colSource,
	"destination":      colDestination,
	"destination_city": colDestination,
	"date_of_journey":  colDate,
	"journey_date":     colDate,
	"dep_time":         colDeparture,
	"departure_time":   colDeparture,
	"arrival_time":     colArrival,
	"duration":         colDuration,
	"total_stops":      colStops,
	"stops":            colStops,
	"base_fare":        colBaseFare,
	"fare":             colBaseFare,
	"tax_surcharge":    colTaxSurcharge,
	"tax":              colTaxSurcharge,
	"taxes":            colTaxSurcharge,
	"total_fare":       colTotalFare,
	"price":            colTotalFare,
}

var requiredColumns = []string{colAirline, colSource, colDestination, colDate}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2/01/2006",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
}

// Result summarizes one CSV read
type Result struct {
	SourceFile  string
	RowsRead    int
	RowsSkipped int
	Records     int
}

// Reader parses flight-price CSV files into fingerprinted staged records
type Reader struct {
	log    logrus.FieldLogger
	hasher *fingerprint.Hasher
}

// NewReader creates a CSV reader that fingerprints records with the given hasher
func NewReader(log logrus.FieldLogger, hasher *fingerprint.Hasher) *Reader {
	return &Reader{
		log:    log.WithField("component", "ingest"),
		hasher: hasher,
	}
}

// Read parses the CSV at path into staged records. Column order is free;
// headers are matched through the alias table. Rows missing identity
// fields or with unparsable dates and fares are skipped and counted, not
// fatal. An entirely unparsable file is an error.
func (r *Reader) Read(path string) ([]flight.StagedRecord, Result, error) {
	f, err := os.Open(path) //nolint:gosec // operator-provided data file path
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	result := Result{SourceFile: filepath.Base(path)}

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, result, ErrEmptyFile
		}

		return nil, result, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, result, err
	}

	ingestedAt := time.Now().UTC()

	var records []flight.StagedRecord

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			result.RowsSkipped++
			r.log.WithError(err).WithField("row", result.RowsRead+1).Debug("Skipping malformed csv row")

			continue
		}

		result.RowsRead++

		record, ok := r.parseRow(columns, row)
		if !ok {
			result.RowsSkipped++
			continue
		}

		records = append(records, flight.StagedRecord{
			Record:      record,
			Fingerprint: r.hasher.Fingerprint(&record),
			IsActive:    true,
			IngestedAt:  ingestedAt,
			SourceFile:  result.SourceFile,
		})
	}

	if result.RowsRead > 0 && len(records) == 0 {
		return nil, result, ErrNoParsableRecords
	}

	result.Records = len(records)

	r.log.WithFields(logrus.Fields{
		"file":    result.SourceFile,
		"rows":    result.RowsRead,
		"skipped": result.RowsSkipped,
		"records": result.Records,
	}).Info("Ingested csv file")

	return records, result, nil
}

// mapHeader resolves canonical column positions from the header row
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))

	for i, name := range header {
		canonical, ok := headerAliases[normalizeHeader(name)]
		if !ok {
			continue
		}

		if _, taken := columns[canonical]; !taken {
			columns[canonical] = i
		}
	}

	var missing []string

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return columns, nil
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	return name
}

// parseRow converts one csv row into a cleaned record. Identity fields are
// normalized before fingerprinting so cosmetic differences in the source do
// not produce distinct fingerprints.
func (r *Reader) parseRow(columns map[string]int, row []string) (flight.Record, bool) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[idx])
	}

	record := flight.Record{
		Airline:     field(colAirline),
		Source:      transform.NormalizeCity(field(colSource)),
		Destination: transform.NormalizeCity(field(colDestination)),
		Duration:    field(colDuration),
	}

	if record.Airline == "" || record.Source == "" || record.Destination == "" {
		return flight.Record{}, false
	}

	date, ok := parseDate(field(colDate))
	if !ok {
		return flight.Record{}, false
	}

	record.DateOfJourney = date
	record.DepartureTime = parseTimeOfDay(field(colDeparture))
	record.ArrivalTime = parseTimeOfDay(field(colArrival))
	record.Stops = parseStops(field(colStops))

	base, baseOK := parseFare(field(colBaseFare))
	tax, taxOK := parseFare(field(colTaxSurcharge))
	total, totalOK := parseFare(field(colTotalFare))

	switch {
	case baseOK && !totalOK:
		total = base.Add(tax)
	case totalOK && !baseOK:
		base = total.Sub(tax)
	case !baseOK && !totalOK:
		return flight.Record{}, false
	}

	if !taxOK {
		tax = decimal.Zero
	}

	if base.IsNegative() || total.IsNegative() {
		return flight.Record{}, false
	}

	record.BaseFare = base
	record.TaxSurcharge = tax
	record.TotalFare = total

	transform.ReconcileTotalFare(&record)
	transform.Enrich(&record)

	return record, true
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseTimeOfDay canonicalizes to 24h HH:MM; unparsable values become empty
func parseTimeOfDay(value string) string {
	if value == "" {
		return ""
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04")
		}
	}

	return ""
}

// parseStops accepts "non-stop", "2 stops", or a bare number
func parseStops(value string) int {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "non-stop" || value == "nonstop" {
		return 0
	}

	fields := strings.Fields(value)
	if n, err := strconv.Atoi(fields[0]); err == nil && n >= 0 {
		return n
	}

	return 0
}

func parseFare(value string) (decimal.Decimal, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}
