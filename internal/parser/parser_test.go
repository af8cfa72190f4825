package parser

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const telemetryHeader = "harsh_acceleration,hbk,lat,lname,lon,osf,spd,tis,fk_asset_id,lic_plate_no\n"

func buildArchive(t *testing.T, members map[string]string, order []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(members[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseTelemetry(t *testing.T) {
	input := telemetryHeader +
		"0,0,12.97,Bangalore,77.59,0,40,1527811200,101,KA01AB1234\n" +
		"1,False,12.98,Bangalore,77.60,True,65.5,1527811260,101,KA01AB1234\n" +
		"0,0,,Bangalore,77.60,0,30,1527811320,101,KA01AB1234\n" + // no lat
		"0,0,12.99,,77.61,0,30,1527811380,101,KA01AB1234\n" + // no lname
		"0,0,12.99,Bangalore,77.61,0,NaN,1527811440,101,KA01AB1234\n" + // spd NaN
		"0,0,12.99,Bangalore,77.61,0,fast,1527811500,101,KA01AB1234\n" + // non-numeric speed
		"0,0,12.99,Bangalore,77.61,0,20,1527811560,102.0,KA02CD5678\n"

	records, stats, err := NewParser().ParseTelemetry(strings.NewReader(input), "dump.csv")
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 7, Dropped: 3, Malformed: 1}, stats)
	require.Len(t, records, 3)

	assert.Equal(t, models.TelemetryRecord{
		AssetID:           101,
		LicensePlate:      "KA01AB1234",
		Latitude:          12.98,
		Longitude:         77.60,
		Speed:             65.5,
		HarshAcceleration: 1,
		HarshBraking:      0,
		LocationName:      "Bangalore",
		OverSpeed:         1,
		Timestamp:         1527811260,
	}, records[1])
	assert.Equal(t, int64(102), records[2].AssetID)
}

func TestParseTelemetryMissingColumns(t *testing.T) {
	input := "lat,lon,spd,tis\n1,2,3,4\n"

	_, _, err := NewParser().ParseTelemetry(strings.NewReader(input), "partial.csv")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingColumns))
	assert.Contains(t, err.Error(), "fk_asset_id")
}

func TestParseTelemetryRejectsOutOfRange(t *testing.T) {
	input := telemetryHeader +
		"0,0,95,North,10,0,10,100,1,AB1\n" +
		"0,0,10,South,10,0,-5,100,1,AB1\n"

	records, stats, err := NewParser().ParseTelemetry(strings.NewReader(input), "bad.csv")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, stats.Malformed)
}

func TestParseZipSkipsDirectoriesAndOtherFiles(t *testing.T) {
	members := map[string]string{
		"EOL-dump/":          "",
		"EOL-dump/a.csv":     telemetryHeader + "0,0,0,Equator,0,0,10,100,1,AB1\n",
		"EOL-dump/README.md": "not telemetry",
		"EOL-dump/b.CSV":     telemetryHeader + "0,0,0,Equator,1,1,20,110,1,AB1\n",
	}
	data := buildArchive(t, members, []string{"EOL-dump/", "EOL-dump/a.csv", "EOL-dump/README.md", "EOL-dump/b.CSV"})

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	records, stats, err := NewParser().parseZip(zr)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	require.Len(t, records, 2)
	assert.Equal(t, int64(100), records[0].Timestamp)
	assert.Equal(t, int64(110), records[1].Timestamp)
}

func TestParseTelemetryArchive(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"x.csv": telemetryHeader + "0,0,0,Equator,0,0,10,100,1,AB1\n",
	}, []string{"x.csv"})

	path := filepath.Join(t.TempDir(), "dump.zip")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	records, _, err := NewParser().ParseTelemetryArchive(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, _, err = NewParser().ParseTelemetryArchive(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}

func TestParseTrips(t *testing.T) {
	input := "trip_id,transporter_name,quantity,vehicle_number,date_time\n" +
		"1,Acme,10,AB1,20221001065150\n" +
		"2,,12,AB1,1664607200\n" +
		"3,Beta,5,,1664607300\n" +
		"4,Beta,5,CD2,yesterday\n"

	trips, stats, err := NewParser().ParseTrips(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 4, Dropped: 1, Malformed: 1}, stats)
	assert.Equal(t, []models.TripRecord{
		{VehicleNumber: "AB1", TransporterName: "Acme", Timestamp: 1664607110},
		{VehicleNumber: "AB1", TransporterName: "", Timestamp: 1664607200},
	}, trips)
}

func TestParseTripsMissingColumns(t *testing.T) {
	_, _, err := NewParser().ParseTrips(strings.NewReader("vehicle_number,transporter_name\nAB1,Acme\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingColumns))

	_, _, err = NewParser().ParseTrips(strings.NewReader("vehicle_number,timestamp\nAB1,100\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingColumns))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		given    string
		expected int64
	}{
		{given: "1527811200", expected: 1527811200},
		{given: "1527811200.0", expected: 1527811200},
		{given: "2018-06-01T00:00:00Z", expected: 1527811200},
		{given: "2018-06-01 00:00:00", expected: 1527811200},
		{given: "20180601000000", expected: 1527811200},
	}

	for _, test := range tests {
		ts, err := parseTimestamp(test.given)
		require.NoError(t, err, test.given)
		assert.Equal(t, test.expected, ts, test.given)
	}

	for _, given := range []string{"soon", "NaN", "Inf", "-Inf", "1e30", "-1e30", "9.3e18"} {
		_, err := parseTimestamp(given)
		assert.Error(t, err, given)
	}
}

func TestParseTelemetryExcludesUndecodableFields(t *testing.T) {
	input := telemetryHeader +
		"0,0,10,Pune,20,0,10,NaN,1,AB1\n" +
		"0,0,10,Pune,20,0,10,Inf,1,AB1\n" +
		"0,0,10,Pune,20,0,10,1e30,1,AB1\n" +
		"jolt,0,10,Pune,20,0,10,100,1,AB1\n" +
		"0,hard,10,Pune,20,0,10,100,1,AB1\n" +
		"0,0,10,Pune,20,0,10,100,1,AB1\n"

	records, stats, err := NewParser().ParseTelemetry(strings.NewReader(input), "bad.csv")
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 6, Malformed: 5}, stats)
	require.Len(t, records, 1)
	assert.Equal(t, int64(100), records[0].Timestamp)
}

func TestParseTripsExcludesOutOfRangeTimestamps(t *testing.T) {
	input := "vehicle_number,transporter_name,timestamp\n" +
		"AB1,Acme,NaN\n" +
		"AB1,Acme,1e30\n" +
		"AB1,Acme,100\n"

	trips, stats, err := NewParser().ParseTrips(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 3, Malformed: 2}, stats)
	require.Len(t, trips, 1)
	assert.Equal(t, int64(100), trips[0].Timestamp)
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		given    string
		expected int
	}{
		{"1", 1}, {"0", 0}, {"True", 1}, {"false", 0}, {"1.0", 1}, {"", 0}, {"nan", 0},
	}

	for _, test := range tests {
		v, err := parseFlag(test.given)
		require.NoError(t, err, test.given)
		assert.Equal(t, test.expected, v, test.given)
	}

	_, err := parseFlag("maybe")
	assert.Error(t, err)
}
