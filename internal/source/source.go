// Package source provides the record sources a report can be generated from.
package source

import (
	"context"
	"fmt"
	"os"

	"fleet-asset-report/internal/config"
	"fleet-asset-report/internal/db"
	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/logger"
	"fleet-asset-report/internal/models"
	"fleet-asset-report/internal/parser"
	"fleet-asset-report/internal/report"
)

var (
	_ report.Source = (*FileSource)(nil)
	_ report.WindowSource = (*DBSource)(nil)
)

// FileSource reads the trip log CSV and the telemetry zip archive on every Load
type FileSource struct {
	TripPath      string
	TelemetryPath string
	parser        *parser.Parser
}

func NewFileSource(tripPath, telemetryPath string) *FileSource {
	return &FileSource{
		TripPath:      tripPath,
		TelemetryPath: telemetryPath,
		parser:        parser.NewParser(),
	}
}

func (s *FileSource) Load(ctx context.Context) (models.Records, error) {
	for _, path := range []string{s.TripPath, s.TelemetryPath} {
		if _, err := os.Stat(path); err != nil {
			return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err).
				WithMessage(fmt.Sprintf("%s: File not found", path))
		}
	}

	trips, tripStats, err := s.parser.ParseTripFile(s.TripPath)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return models.Records{}, err
	}

	telemetry, fixStats, err := s.parser.ParseTelemetryArchive(s.TelemetryPath)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	logger.Debug().
		Int("trips", len(trips)).
		Int("trip_rows_excluded", tripStats.Dropped+tripStats.Malformed).
		Int("fixes", len(telemetry)).
		Int("fixes_dropped", fixStats.Dropped).
		Int("fixes_malformed", fixStats.Malformed).
		Msg("Records loaded from files")

	if fixStats.Malformed > 0 || tripStats.Malformed > 0 {
		logger.Warn().
			Int("trips", tripStats.Malformed).
			Int("fixes", fixStats.Malformed).
			Msg("Malformed records excluded")
	}

	return models.Records{Trips: trips, Telemetry: telemetry}, nil
}

// DBSource reads records previously ingested into the sqlite store
type DBSource struct {
	db *db.Database
}

func NewDBSource(database *db.Database) *DBSource {
	return &DBSource{db: database}
}

func (s *DBSource) Load(ctx context.Context) (models.Records, error) {
	trips, err := s.db.Trips(ctx)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	telemetry, err := s.db.Telemetry(ctx)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	return models.Records{Trips: trips, Telemetry: telemetry}, nil
}

// LoadWindow reads only the records stamped inside w
func (s *DBSource) LoadWindow(ctx context.Context, w models.Window) (models.Records, error) {
	trips, err := s.db.TripsInWindow(ctx, w)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	telemetry, err := s.db.TelemetryInWindow(ctx, w)
	if err != nil {
		return models.Records{}, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	return models.Records{Trips: trips, Telemetry: telemetry}, nil
}

// Open builds the source selected by cfg. The returned close function
// releases any storage handle and is never nil.
func Open(cfg *config.Config) (report.Source, func() error, error) {
	switch cfg.Source {
	case config.SourceSQLite:
		database, err := db.New(cfg.DBPath)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrSourceUnavailable, err)
		}
		return NewDBSource(database), database.Close, nil
	default:
		return NewFileSource(cfg.TripPath(), cfg.TelemetryPath()), func() error { return nil }, nil
	}
}
