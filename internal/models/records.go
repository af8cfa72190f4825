package models

import "github.com/paulmach/orb"

// TripRecord represents one completed trip from the trip log
type TripRecord struct {
	VehicleNumber   string `json:"vehicle_number"`
	TransporterName string `json:"transporter_name"`
	Timestamp       int64  `json:"timestamp"` // epoch seconds
}

func (t TripRecord) Stamp() int64 { return t.Timestamp }

// TelemetryRecord represents a single GPS fix reported for an asset
type TelemetryRecord struct {
	AssetID           int64   `json:"fk_asset_id"`
	LicensePlate      string  `json:"lic_plate_no"`
	Latitude          float64 `json:"lat"`
	Longitude         float64 `json:"lon"`
	Speed             float64 `json:"spd"` // km/h
	HarshAcceleration int     `json:"harsh_acceleration"`
	HarshBraking      int     `json:"hbk"`
	LocationName      string  `json:"lname"`
	OverSpeed         int     `json:"osf"` // 0 or 1
	Timestamp         int64   `json:"tis"` // epoch seconds
}

func (t TelemetryRecord) Stamp() int64 { return t.Timestamp }

// Point returns the fix as an orb point (longitude first).
func (t TelemetryRecord) Point() orb.Point {
	return orb.Point{t.Longitude, t.Latitude}
}

// Records holds both streams read from a source in ingestion order
type Records struct {
	Trips     []TripRecord
	Telemetry []TelemetryRecord
}
