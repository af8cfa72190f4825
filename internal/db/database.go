package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection holding ingested trips and telemetry
type Database struct {
	conn *sql.DB
}

// Stats summarizes the store contents
type Stats struct {
	Trips     int64 `json:"trips"`
	Telemetry int64 `json:"telemetry"`
	Vehicles  int64 `json:"vehicles"`
	Assets    int64 `json:"assets"`
	FirstFix  int64 `json:"first_fix"`
	LastFix   int64 `json:"last_fix"`
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	// Enable WAL mode and other optimizations via connection string
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageInit, err)
	}

	conn.SetMaxOpenConns(1) // SQLite works best with single writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrStorageInit, err)
	}

	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_number TEXT NOT NULL,
		transporter_name TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fk_asset_id INTEGER NOT NULL,
		lic_plate_no TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		spd REAL NOT NULL,
		harsh_acceleration INTEGER NOT NULL DEFAULT 0,
		hbk INTEGER NOT NULL DEFAULT 0,
		lname TEXT NOT NULL,
		osf INTEGER NOT NULL DEFAULT 0,
		tis INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trips_timestamp ON trips(timestamp);
	CREATE INDEX IF NOT EXISTS idx_telemetry_tis ON telemetry(tis);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// Reset removes all ingested records
func (db *Database) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM trips; DELETE FROM telemetry;`); err != nil {
		return errors.Wrap(errors.ErrStorageAccess, err)
	}
	return nil
}

// InsertTripBatch inserts trips in one transaction
func (db *Database) InsertTripBatch(ctx context.Context, records []models.TripRecord) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trips (vehicle_number, transporter_name, timestamp)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer stmt.Close()

	var count int64
	for _, t := range records {
		if _, err := stmt.ExecContext(ctx, t.VehicleNumber, t.TransporterName, t.Timestamp); err != nil {
			return 0, errors.Wrap(errors.ErrStorageAccess, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	return count, nil
}

// InsertTelemetryBatch efficiently inserts multiple telemetry records
func (db *Database) InsertTelemetryBatch(ctx context.Context, records []models.TelemetryRecord) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry
		(fk_asset_id, lic_plate_no, lat, lon, spd, harsh_acceleration, hbk, lname, osf, tis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer stmt.Close()

	var count int64
	for _, t := range records {
		_, err := stmt.ExecContext(ctx,
			t.AssetID, t.LicensePlate, t.Latitude, t.Longitude, t.Speed,
			t.HarshAcceleration, t.HarshBraking, t.LocationName, t.OverSpeed, t.Timestamp,
		)
		if err != nil {
			return 0, errors.Wrap(errors.ErrStorageAccess, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrStorageAccess, err)
	}
	return count, nil
}

// Trips returns every stored trip in ingestion order
func (db *Database) Trips(ctx context.Context) ([]models.TripRecord, error) {
	return db.queryTrips(ctx, "")
}

// TripsInWindow returns the trips logged inside w, in ingestion order
func (db *Database) TripsInWindow(ctx context.Context, w models.Window) ([]models.TripRecord, error) {
	return db.queryTrips(ctx, "WHERE timestamp BETWEEN ? AND ?", w.Start, w.End)
}

func (db *Database) queryTrips(ctx context.Context, where string, args ...interface{}) ([]models.TripRecord, error) {
	query := "SELECT vehicle_number, transporter_name, timestamp FROM trips " + where + " ORDER BY id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer rows.Close()

	var results []models.TripRecord
	for rows.Next() {
		var t models.TripRecord
		if err := rows.Scan(&t.VehicleNumber, &t.TransporterName, &t.Timestamp); err != nil {
			return nil, errors.Wrap(errors.ErrStorageAccess, err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStorageAccess, err)
	}
	return results, nil
}

// Telemetry returns every stored fix in ingestion order
func (db *Database) Telemetry(ctx context.Context) ([]models.TelemetryRecord, error) {
	return db.queryTelemetry(ctx, "")
}

// TelemetryInWindow returns the fixes taken inside w, in ingestion order
func (db *Database) TelemetryInWindow(ctx context.Context, w models.Window) ([]models.TelemetryRecord, error) {
	return db.queryTelemetry(ctx, "WHERE tis BETWEEN ? AND ?", w.Start, w.End)
}

func (db *Database) queryTelemetry(ctx context.Context, where string, args ...interface{}) ([]models.TelemetryRecord, error) {
	query := `
		SELECT fk_asset_id, lic_plate_no, lat, lon, spd,
		       harsh_acceleration, hbk, lname, osf, tis
		FROM telemetry ` + where + `
		ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer rows.Close()

	var results []models.TelemetryRecord
	for rows.Next() {
		var t models.TelemetryRecord
		err := rows.Scan(
			&t.AssetID, &t.LicensePlate, &t.Latitude, &t.Longitude, &t.Speed,
			&t.HarshAcceleration, &t.HarshBraking, &t.LocationName, &t.OverSpeed, &t.Timestamp,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorageAccess, err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStorageAccess, err)
	}
	return results, nil
}

// GetStats returns database statistics
func (db *Database) GetStats(ctx context.Context) (Stats, error) {
	var s Stats

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT vehicle_number) FROM trips`,
	).Scan(&s.Trips, &s.Vehicles)
	if err != nil {
		return s, errors.Wrap(errors.ErrStorageAccess, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT fk_asset_id), COALESCE(MIN(tis), 0), COALESCE(MAX(tis), 0) FROM telemetry`,
	).Scan(&s.Telemetry, &s.Assets, &s.FirstFix, &s.LastFix)
	if err != nil {
		return s, errors.Wrap(errors.ErrStorageAccess, err)
	}

	return s, nil
}
