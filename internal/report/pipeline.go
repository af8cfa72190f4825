package report

import (
	"context"
	"fmt"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/logger"
	"fleet-asset-report/internal/models"

	"golang.org/x/sync/errgroup"
)

// Source yields the decoded trip and telemetry streams. Load is called once
// per report.
type Source interface {
	Load(ctx context.Context) (models.Records, error)
}

// WindowSource is a Source that can restrict its read to a window
type WindowSource interface {
	Source
	LoadWindow(ctx context.Context, w models.Window) (models.Records, error)
}

// Generate reads src once and builds the report for w; a WindowSource is
// only asked for w. It fails with ErrSourceUnavailable when src cannot be
// read and ErrEmptyReport when nothing falls inside the window. A cancelled
// ctx stops it before any work.
func Generate(ctx context.Context, src Source, w models.Window) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		records models.Records
		err     error
	)
	if ws, ok := src.(WindowSource); ok {
		records, err = ws.LoadWindow(ctx, w)
	} else {
		records, err = src.Load(ctx)
	}
	if err != nil {
		if errors.HasCode(err, errors.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrSourceUnavailable, err)
	}

	return Build(ctx, records, w)
}

// Build runs filtering, aggregation and assembly over records that are
// already in memory.
func Build(ctx context.Context, records models.Records, w models.Window) (*models.Report, error) {
	trips := Filter(records.Trips, w)
	telemetry := Filter(records.Telemetry, w)

	logger.Debug().
		Str("window", w.String()).
		Int("trips", len(trips)).
		Int("trips_total", len(records.Trips)).
		Int("fixes", len(telemetry)).
		Int("fixes_total", len(records.Telemetry)).
		Msg("Window applied")

	var (
		distances []models.DistanceResult
		summaries []models.SpeedSummary
	)

	// both aggregators only read telemetry
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		order, tracks := Tracks(telemetry)
		distances = trackDistances(order, tracks)
		if extent, ok := Extent(tracks); ok {
			logger.Debug().
				Floats64("min", []float64{extent.Min.Lon(), extent.Min.Lat()}).
				Floats64("max", []float64{extent.Max.Lon(), extent.Max.Lat()}).
				Msg("Track extent")
		}
		return nil
	})
	g.Go(func() error {
		summaries = SpeedSummaries(telemetry)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, err := Assemble(distances, summaries, TripCounts(trips), Transporters(trips))
	if err != nil {
		if errors.HasCode(err, errors.ErrEmptyReport) {
			return nil, errors.New(errors.ErrEmptyReport).WithMessage(
				fmt.Sprintf("No data found for start time : %d and end time : %d", w.Start, w.End))
		}
		return nil, err
	}

	logger.Debug().
		Int("assets", len(distances)).
		Int("rows", len(rows)).
		Msg("Report assembled")

	return &models.Report{Window: w, Rows: rows}, nil
}
