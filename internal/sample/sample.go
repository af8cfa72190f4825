// Package sample writes synthetic trip logs and telemetry archives in the
// layout the file source reads.
package sample

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/parser"
)

// Options controls the generated fleet
type Options struct {
	Vehicles int
	Fixes    int // per vehicle
	Trips    int // per vehicle
	Start    time.Time
	Interval time.Duration
	Seed     int64
}

// Result describes what was written
type Result struct {
	TripPath      string
	TelemetryPath string
	Trips         int
	Fixes         int
}

var transporters = []string{"Blue Dart", "Gati", "Safexpress", "TCI Freight"}
var places = []string{"Pune", "Nashik", "Satara", "Kolhapur", "Lonavala"}

// Write generates a trip log and telemetry archive under dir using the given
// file names.
func Write(dir, tripFile, archiveFile string, opts Options) (Result, error) {
	if opts.Vehicles <= 0 || opts.Fixes <= 0 {
		return Result{}, errors.New(errors.ErrInvalidConfig).WithData("vehicles and fixes must be positive")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, errors.Wrap(errors.ErrSinkFailed, err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	res := Result{
		TripPath:      filepath.Join(dir, tripFile),
		TelemetryPath: filepath.Join(dir, archiveFile),
	}

	plates := make([]string, opts.Vehicles)
	for i := range plates {
		plates[i] = fmt.Sprintf("MH12%s%04d", string(rune('A'+i%26)), rng.Intn(10000))
	}

	n, err := writeTrips(res.TripPath, plates, opts, rng)
	if err != nil {
		return Result{}, err
	}
	res.Trips = n

	n, err = writeArchive(res.TelemetryPath, plates, opts, rng)
	if err != nil {
		return Result{}, err
	}
	res.Fixes = n

	return res, nil
}

func writeTrips(path string, plates []string, opts Options, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(errors.ErrSinkFailed, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"trip_id", "transporter_name", "vehicle_number", "date_time"})

	span := time.Duration(opts.Fixes) * opts.Interval
	count := 0
	for i, plate := range plates {
		transporter := transporters[i%len(transporters)]
		for j := 0; j < opts.Trips; j++ {
			ts := opts.Start.Add(time.Duration(rng.Int63n(int64(span) + 1)))
			count++
			w.Write([]string{
				strconv.Itoa(count),
				transporter,
				plate,
				ts.UTC().Format("20060102150405"),
			})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, errors.Wrap(errors.ErrSinkFailed, err)
	}
	return count, f.Close()
}

func writeArchive(path string, plates []string, opts Options, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(errors.ErrSinkFailed, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	count := 0

	for i, plate := range plates {
		member, err := zw.Create(fmt.Sprintf("EOL-dump/%s.csv", plate))
		if err != nil {
			return 0, errors.Wrap(errors.ErrSinkFailed, err)
		}

		w := csv.NewWriter(member)
		w.Write(parser.TelemetryColumns)

		// Random walk around Pune
		lat := 18.5204 + (rng.Float64()-0.5)*0.2
		lon := 73.8567 + (rng.Float64()-0.5)*0.2
		assetID := strconv.Itoa(1000 + i)

		for j := 0; j < opts.Fixes; j++ {
			lat += (rng.Float64() - 0.5) * 0.01
			lon += (rng.Float64() - 0.5) * 0.01
			spd := rng.Float64() * 90
			osf := "0"
			if spd > 80 {
				osf = "1"
			}
			ts := opts.Start.Add(time.Duration(j) * opts.Interval).Unix()

			// harsh_acceleration, hbk, lat, lname, lon, osf, spd, tis, fk_asset_id, lic_plate_no
			w.Write([]string{
				flag(rng, 0.02),
				flag(rng, 0.02),
				strconv.FormatFloat(lat, 'f', 6, 64),
				places[rng.Intn(len(places))],
				strconv.FormatFloat(lon, 'f', 6, 64),
				osf,
				strconv.FormatFloat(spd, 'f', 1, 64),
				strconv.FormatInt(ts, 10),
				assetID,
				plate,
			})
			count++
		}

		w.Flush()
		if err := w.Error(); err != nil {
			return 0, errors.Wrap(errors.ErrSinkFailed, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(errors.ErrSinkFailed, err)
	}
	return count, f.Close()
}

func flag(rng *rand.Rand, p float64) string {
	if rng.Float64() < p {
		return "1"
	}
	return "0"
}
