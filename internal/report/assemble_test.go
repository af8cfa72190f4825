package report

import (
	"context"
	"testing"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestAssembleOuterJoin(t *testing.T) {
	distances := []models.DistanceResult{{AssetID: 1, DistanceKM: 12.5}, {AssetID: 2, DistanceKM: 0}}
	summaries := []models.SpeedSummary{
		{AssetID: 1, LicensePlate: "AB1", AverageSpeed: 40, ViolationCount: 3},
		{AssetID: 2, LicensePlate: "TEL2", AverageSpeed: 15, ViolationCount: 0},
	}
	counts := []models.TripCount{
		{VehicleNumber: "AB1", TripsCompleted: 2},
		{VehicleNumber: "TRIP3", TripsCompleted: 1},
	}
	transporters := map[string]string{"AB1": "Acme", "TRIP3": "Beta"}

	rows, err := Assemble(distances, summaries, counts, transporters)
	require.NoError(t, err)

	expected := []models.ReportRow{
		{
			LicensePlate:    "AB1",
			AssetID:         ptr(int64(1)),
			Distance:        ptr(12.5),
			AverageSpeed:    ptr(40.0),
			SpeedViolations: ptr(3),
			TripsCompleted:  ptr(2),
			TransporterName: ptr("Acme"),
		},
		{
			LicensePlate:    "TEL2",
			AssetID:         ptr(int64(2)),
			Distance:        ptr(0.0),
			AverageSpeed:    ptr(15.0),
			SpeedViolations: ptr(0),
		},
		{
			LicensePlate:    "TRIP3",
			TripsCompleted:  ptr(1),
			TransporterName: ptr("Beta"),
		},
	}

	if diff := cmp.Diff(expected, rows, approx); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleTelemetryOnlyKeepsNullTripFields(t *testing.T) {
	rows, err := Assemble(
		[]models.DistanceResult{{AssetID: 5, DistanceKM: 1}},
		[]models.SpeedSummary{{AssetID: 5, LicensePlate: "V", AverageSpeed: 10}},
		nil,
		nil,
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "V", rows[0].LicensePlate)
	assert.Nil(t, rows[0].TripsCompleted)
	assert.Nil(t, rows[0].TransporterName)
	assert.NotNil(t, rows[0].Distance)
}

func TestAssembleDistanceWithoutSummary(t *testing.T) {
	rows, err := Assemble([]models.DistanceResult{{AssetID: 8, DistanceKM: 3}}, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(8), *rows[0].AssetID)
	assert.Nil(t, rows[0].AverageSpeed)
}

func TestAssembleSharedPlateAcrossAssets(t *testing.T) {
	rows, err := Assemble(
		[]models.DistanceResult{{AssetID: 1, DistanceKM: 4}, {AssetID: 2, DistanceKM: 6}},
		[]models.SpeedSummary{
			{AssetID: 1, LicensePlate: "SAME"},
			{AssetID: 2, LicensePlate: "SAME"},
		},
		[]models.TripCount{{VehicleNumber: "SAME", TripsCompleted: 4}},
		map[string]string{"SAME": "Acme"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, 4, *row.TripsCompleted)
	}
	assert.Equal(t, 4.0, *rows[0].Distance)
	assert.Equal(t, 6.0, *rows[1].Distance)
}

func TestAssembleEmpty(t *testing.T) {
	rows, err := Assemble(nil, nil, nil, nil)
	assert.Nil(t, rows)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrEmptyReport))
}

func TestAssembleTransporterOnlyVehicles(t *testing.T) {
	rows, err := Assemble(nil, nil, nil, map[string]string{"ZZ9": "Zeta", "AA1": "Alpha"})
	require.NoError(t, err)

	expected := []models.ReportRow{
		{LicensePlate: "AA1", TransporterName: ptr("Alpha")},
		{LicensePlate: "ZZ9", TransporterName: ptr("Zeta")},
	}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEmitsOneRowPerTripVehicle(t *testing.T) {
	trips := []models.TripRecord{
		{VehicleNumber: "T1", TransporterName: "Acme", Timestamp: 5},
		{VehicleNumber: "T2", Timestamp: 6},
		{VehicleNumber: "T1", TransporterName: "Other", Timestamp: 7},
	}

	rep, err := Build(context.Background(), models.Records{Trips: trips}, models.NewWindow(0, 10))
	require.NoError(t, err)

	expected := []models.ReportRow{
		{LicensePlate: "T1", TripsCompleted: ptr(2), TransporterName: ptr("Acme")},
		{LicensePlate: "T2", TripsCompleted: ptr(1)},
	}
	if diff := cmp.Diff(expected, rep.Rows); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}
