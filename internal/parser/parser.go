package parser

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/logger"
	"fleet-asset-report/internal/models"
)

// TelemetryColumns must all be present in every telemetry CSV
var TelemetryColumns = []string{
	"harsh_acceleration", "hbk", "lat", "lname", "lon",
	"osf", "spd", "tis", "fk_asset_id", "lic_plate_no",
}

// tripTimeColumns are tried in order to locate the trip timestamp
var tripTimeColumns = []string{"timestamp", "tis", "date_time", "trip_time"}

// Stats counts what happened to the rows of one or more inputs
type Stats struct {
	Rows      int // data rows read
	Dropped   int // incomplete fixes removed at ingestion
	Malformed int // rows excluded because a field could not be decoded
}

func (s *Stats) add(o Stats) {
	s.Rows += o.Rows
	s.Dropped += o.Dropped
	s.Malformed += o.Malformed
}

// Parser decodes trip logs and telemetry dumps
type Parser struct{}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseTripFile parses the trip log CSV at filename
func (p *Parser) ParseTripFile(filename string) ([]models.TripRecord, Stats, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.ParseTrips(file)
}

// ParseTelemetryArchive parses every CSV member of a zip archive, in archive order
func (p *Parser) ParseTelemetryArchive(filename string) ([]models.TelemetryRecord, Stats, error) {
	archive, err := zip.OpenReader(filename)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	return p.parseZip(&archive.Reader)
}

func (p *Parser) parseZip(archive *zip.Reader) ([]models.TelemetryRecord, Stats, error) {
	var (
		results []models.TelemetryRecord
		total   Stats
	)

	for _, f := range archive.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, total, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		records, stats, err := p.ParseTelemetry(rc, f.Name)
		rc.Close()
		if err != nil {
			return nil, total, err
		}

		total.add(stats)
		results = append(results, records...)
	}

	return results, total, nil
}

// readHeader maps lower-cased column names to their index
func readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return indices, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.ReuseRecord = true
	return reader
}

func missingColumns(indices map[string]int, required []string) []string {
	var missing []string
	for _, c := range required {
		if _, ok := indices[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// ParseTrips parses trip log rows. Rows without a vehicle number are dropped
// and rows whose timestamp cannot be decoded are excluded.
func (p *Parser) ParseTrips(r io.Reader) ([]models.TripRecord, Stats, error) {
	reader := newReader(r)

	indices, err := readHeader(reader)
	if err != nil {
		return nil, Stats{}, err
	}

	if missing := missingColumns(indices, []string{"vehicle_number", "transporter_name"}); len(missing) > 0 {
		return nil, Stats{}, errors.New(errors.ErrMissingColumns).WithData(missing)
	}

	timeColumn := ""
	for _, c := range tripTimeColumns {
		if _, ok := indices[c]; ok {
			timeColumn = c
			break
		}
	}
	if timeColumn == "" {
		return nil, Stats{}, errors.New(errors.ErrMissingColumns).WithData(tripTimeColumns)
	}

	var (
		results []models.TripRecord
		stats   Stats
	)
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return results, stats, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		stats.Rows++

		getValue := valueGetter(record, indices)

		trip := models.TripRecord{
			VehicleNumber:   getValue("vehicle_number"),
			TransporterName: getValue("transporter_name"),
		}
		if isMissing(trip.VehicleNumber) {
			stats.Dropped++
			continue
		}
		if isMissing(trip.TransporterName) {
			trip.TransporterName = ""
		}

		trip.Timestamp, err = parseTimestamp(getValue(timeColumn))
		if err != nil {
			stats.Malformed++
			logger.Debug().Int("line", lineNum).Err(err).Msg("Skipping trip row")
			continue
		}

		results = append(results, trip)
	}

	return results, stats, nil
}

// ParseTelemetry parses one telemetry CSV. Fixes missing lat, lon, spd or
// lname are dropped; fixes with undecodable fields are excluded.
func (p *Parser) ParseTelemetry(r io.Reader, name string) ([]models.TelemetryRecord, Stats, error) {
	reader := newReader(r)

	indices, err := readHeader(reader)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%s: %w", name, err)
	}

	if missing := missingColumns(indices, TelemetryColumns); len(missing) > 0 {
		return nil, Stats{}, errors.New(errors.ErrMissingColumns).
			WithData(fmt.Sprintf("%s: %s", name, strings.Join(missing, ", ")))
	}

	var (
		results []models.TelemetryRecord
		stats   Stats
	)
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return results, stats, fmt.Errorf("%s: error at line %d: %w", name, lineNum, err)
		}
		stats.Rows++

		getValue := valueGetter(record, indices)
		if isMissing(getValue("lat")) || isMissing(getValue("lon")) ||
			isMissing(getValue("spd")) || isMissing(getValue("lname")) {
			stats.Dropped++
			continue
		}

		data, err := recordToTelemetry(getValue)
		if err == nil {
			if errs := ValidateTelemetry(&data); len(errs) > 0 {
				err = errors.New(errors.ErrAggregation).WithData(errs[0])
			}
		}
		if err != nil {
			stats.Malformed++
			logger.Debug().Str("file", name).Int("line", lineNum).Err(err).Msg("Skipping telemetry row")
			continue
		}

		results = append(results, data)
	}

	if stats.Dropped > 0 || stats.Malformed > 0 {
		logger.Debug().
			Str("file", name).
			Int("rows", stats.Rows).
			Int("dropped", stats.Dropped).
			Int("malformed", stats.Malformed).
			Msg("Telemetry rows excluded")
	}

	return results, stats, nil
}

func valueGetter(record []string, indices map[string]int) func(string) string {
	return func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}
}

// recordToTelemetry decodes a complete row into a TelemetryRecord
func recordToTelemetry(getValue func(string) string) (models.TelemetryRecord, error) {
	var (
		t   models.TelemetryRecord
		err error
	)
	malformed := func(field string, cause error) error {
		return errors.Wrap(errors.ErrAggregation, cause).WithMessage("invalid " + field)
	}

	if t.AssetID, err = parseAssetID(getValue("fk_asset_id")); err != nil {
		return t, malformed("fk_asset_id", err)
	}
	if t.Latitude, err = strconv.ParseFloat(getValue("lat"), 64); err != nil {
		return t, malformed("lat", err)
	}
	if t.Longitude, err = strconv.ParseFloat(getValue("lon"), 64); err != nil {
		return t, malformed("lon", err)
	}
	if t.Speed, err = strconv.ParseFloat(getValue("spd"), 64); err != nil {
		return t, malformed("spd", err)
	}
	if t.OverSpeed, err = parseFlag(getValue("osf")); err != nil {
		return t, malformed("osf", err)
	}
	if t.Timestamp, err = parseTimestamp(getValue("tis")); err != nil {
		return t, malformed("tis", err)
	}

	// Harsh event flags are carried but never aggregated
	if t.HarshAcceleration, err = parseFlag(getValue("harsh_acceleration")); err != nil {
		return t, malformed("harsh_acceleration", err)
	}
	if t.HarshBraking, err = parseFlag(getValue("hbk")); err != nil {
		return t, malformed("hbk", err)
	}

	t.LicensePlate = getValue("lic_plate_no")
	t.LocationName = getValue("lname")

	return t, nil
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

func parseAssetID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("non-integer asset id: %s", s)
	}
	return int64(f), nil
}

// parseFlag accepts booleans and numbers; any non-zero number counts as set.
// A missing flag counts as unset.
func parseFlag(s string) (int, error) {
	if isMissing(s) {
		return 0, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != 0 {
		return 1, nil
	}
	return 0, nil
}

// parseTimestamp tries multiple timestamp formats and returns epoch seconds
func parseTimestamp(s string) (int64, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
		"01/02/2006 15:04:05",
		"20060102150405",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Unix(), nil
		}
	}

	// Try Unix timestamp
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("timestamp out of range: %q", s)
		}
		return int64(f), nil
	}

	return 0, fmt.Errorf("unable to parse timestamp: %q", s)
}

// ValidateTelemetry validates a decoded fix
func ValidateTelemetry(t *models.TelemetryRecord) []string {
	var errs []string

	if t.Latitude < -90 || t.Latitude > 90 {
		errs = append(errs, "latitude must be between -90 and 90")
	}
	if t.Longitude < -180 || t.Longitude > 180 {
		errs = append(errs, "longitude must be between -180 and 180")
	}
	if t.Speed < 0 {
		errs = append(errs, "speed cannot be negative")
	}
	if math.IsInf(t.Speed, 0) {
		errs = append(errs, "speed must be finite")
	}

	return errs
}
