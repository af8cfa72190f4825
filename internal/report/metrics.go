package report

import (
	"sort"

	"fleet-asset-report/internal/models"
)

type speedKey struct {
	assetID int64
	plate   string
}

type speedAcc struct {
	sum        float64
	count      int
	violations int
}

// SpeedSummaries groups fixes by (asset, plate) and reports the mean speed
// and the number of over-speed fixes of each group, in order of first
// appearance.
func SpeedSummaries(telemetry []models.TelemetryRecord) []models.SpeedSummary {
	var order []speedKey
	acc := make(map[speedKey]*speedAcc)

	for _, t := range telemetry {
		k := speedKey{assetID: t.AssetID, plate: t.LicensePlate}
		a, ok := acc[k]
		if !ok {
			a = &speedAcc{}
			acc[k] = a
			order = append(order, k)
		}
		a.sum += t.Speed
		a.count++
		a.violations += t.OverSpeed
	}

	summaries := make([]models.SpeedSummary, 0, len(order))
	for _, k := range order {
		a := acc[k]
		summaries = append(summaries, models.SpeedSummary{
			AssetID:        k.assetID,
			LicensePlate:   k.plate,
			AverageSpeed:   a.sum / float64(a.count),
			ViolationCount: a.violations,
		})
	}
	return summaries
}

// TripCounts counts trips per vehicle, in order of first appearance.
func TripCounts(trips []models.TripRecord) []models.TripCount {
	var order []string
	counts := make(map[string]int)

	for _, t := range trips {
		if _, ok := counts[t.VehicleNumber]; !ok {
			order = append(order, t.VehicleNumber)
		}
		counts[t.VehicleNumber]++
	}

	results := make([]models.TripCount, 0, len(order))
	for _, v := range order {
		results = append(results, models.TripCount{VehicleNumber: v, TripsCompleted: counts[v]})
	}
	return results
}

// Transporters picks, for every vehicle, the first non-empty transporter
// name in time order. Trips sharing a timestamp keep their input order.
func Transporters(trips []models.TripRecord) map[string]string {
	ordered := make([]models.TripRecord, len(trips))
	copy(ordered, trips)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	names := make(map[string]string)
	for _, t := range ordered {
		if t.TransporterName == "" {
			continue
		}
		if _, ok := names[t.VehicleNumber]; !ok {
			names[t.VehicleNumber] = t.TransporterName
		}
	}
	return names
}
