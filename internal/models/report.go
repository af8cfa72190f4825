package models

// DistanceResult is the accumulated great-circle distance of one asset
type DistanceResult struct {
	AssetID    int64   `json:"fk_asset_id"`
	DistanceKM float64 `json:"distance_km"`
}

// SpeedSummary aggregates fixes of one (asset, plate) pair
type SpeedSummary struct {
	AssetID        int64   `json:"fk_asset_id"`
	LicensePlate   string  `json:"lic_plate_no"`
	AverageSpeed   float64 `json:"average_speed"`
	ViolationCount int     `json:"speed_violations"`
}

// TripCount is the number of trips logged for one vehicle
type TripCount struct {
	VehicleNumber  string `json:"vehicle_number"`
	TripsCompleted int    `json:"trips_completed"`
}

// ReportRow is one vehicle's line in the report. Fields the joined sources
// could not provide are nil.
type ReportRow struct {
	LicensePlate    string   `json:"license_plate"`
	AssetID         *int64   `json:"fk_asset_id,omitempty"`
	Distance        *float64 `json:"distance"`
	AverageSpeed    *float64 `json:"average_speed"`
	SpeedViolations *int     `json:"speed_violations"`
	TripsCompleted  *int     `json:"trips_completed"`
	TransporterName *string  `json:"transporter_name"`
}

// ReportColumns are the exported column headers, in order.
var ReportColumns = []string{
	"License plate number",
	"Distance",
	"Average Speed",
	"Number of Speed Violations",
	"Number of Trips Completed",
	"Transporter Name",
}

// Report is the assembled result for one window
type Report struct {
	Window Window      `json:"window"`
	Rows   []ReportRow `json:"rows"`
}
