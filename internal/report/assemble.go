package report

import (
	"sort"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/models"
)

// Assemble outer-joins the partial results into report rows. Telemetry rows
// come first, one per (asset, plate) pair, with the asset's distance and the
// trip figures of the matching vehicle number. Vehicles seen only in trips
// follow, with their telemetry fields left nil. No input row is dropped.
func Assemble(
	distances []models.DistanceResult,
	summaries []models.SpeedSummary,
	counts []models.TripCount,
	transporters map[string]string,
) ([]models.ReportRow, error) {
	distanceByAsset := make(map[int64]float64, len(distances))
	for _, d := range distances {
		distanceByAsset[d.AssetID] = d.DistanceKM
	}

	countByVehicle := make(map[string]int, len(counts))
	for _, c := range counts {
		countByVehicle[c.VehicleNumber] = c.TripsCompleted
	}

	var rows []models.ReportRow
	plates := make(map[string]struct{})
	assets := make(map[int64]struct{})

	withTrips := func(row *models.ReportRow, vehicle string) {
		if n, ok := countByVehicle[vehicle]; ok {
			row.TripsCompleted = ptr(n)
		}
		if name, ok := transporters[vehicle]; ok {
			row.TransporterName = ptr(name)
		}
	}

	for _, s := range summaries {
		row := models.ReportRow{
			LicensePlate:    s.LicensePlate,
			AssetID:         ptr(s.AssetID),
			AverageSpeed:    ptr(s.AverageSpeed),
			SpeedViolations: ptr(s.ViolationCount),
		}
		if d, ok := distanceByAsset[s.AssetID]; ok {
			row.Distance = ptr(d)
		}
		withTrips(&row, s.LicensePlate)

		rows = append(rows, row)
		plates[s.LicensePlate] = struct{}{}
		assets[s.AssetID] = struct{}{}
	}

	// distance without a speed summary only happens when callers feed
	// aggregates computed over different telemetry
	for _, d := range distances {
		if _, ok := assets[d.AssetID]; ok {
			continue
		}
		rows = append(rows, models.ReportRow{
			AssetID:  ptr(d.AssetID),
			Distance: ptr(d.DistanceKM),
		})
		assets[d.AssetID] = struct{}{}
	}

	for _, c := range counts {
		if _, ok := plates[c.VehicleNumber]; ok {
			continue
		}
		row := models.ReportRow{LicensePlate: c.VehicleNumber}
		withTrips(&row, c.VehicleNumber)
		rows = append(rows, row)
		plates[c.VehicleNumber] = struct{}{}
	}

	// Build derives transporters and counts from the same trips, so this
	// only adds rows for callers passing a transporter map of their own.
	var orphans []string
	for vehicle := range transporters {
		if _, ok := plates[vehicle]; !ok {
			orphans = append(orphans, vehicle)
		}
	}
	sort.Strings(orphans)
	for _, vehicle := range orphans {
		rows = append(rows, models.ReportRow{
			LicensePlate:    vehicle,
			TransporterName: ptr(transporters[vehicle]),
		})
	}

	if len(rows) == 0 {
		return nil, errors.New(errors.ErrEmptyReport)
	}

	return rows, nil
}

func ptr[T any](v T) *T {
	return &v
}
