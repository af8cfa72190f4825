package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleet-asset-report/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	records models.Records
	err     error
}

func (f fakeSource) Load(context.Context) (models.Records, error) {
	return f.records, f.err
}

func sampleSource() fakeSource {
	return fakeSource{records: models.Records{
		Trips: []models.TripRecord{{VehicleNumber: "AB1", TransporterName: "Acme", Timestamp: 100}},
		Telemetry: []models.TelemetryRecord{
			{AssetID: 1, LicensePlate: "AB1", Latitude: 0, Longitude: 0, Speed: 10, LocationName: "A", Timestamp: 100},
			{AssetID: 1, LicensePlate: "AB1", Latitude: 0, Longitude: 1, Speed: 20, OverSpeed: 1, LocationName: "A", Timestamp: 110},
		},
	}}
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUsageAndHealth(t *testing.T) {
	s := NewServer(sampleSource(), "xlsx")

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "start_time=<your_start_time>")

	rec = get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
}

func TestAssetReportXLSX(t *testing.T) {
	s := NewServer(sampleSource(), "xlsx")

	rec := get(t, s, "/asset_report?start_time=100&end_time=110")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="asset_report_100_110.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Asset Report")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AB1", rows[1][0])
	assert.Equal(t, "Acme", rows[1][5])
}

func TestAssetReportCSV(t *testing.T) {
	s := NewServer(sampleSource(), "xlsx")

	rec := get(t, s, "/asset_report?start_time=100&end_time=110&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "AB1,")
	assert.Contains(t, rec.Body.String(), ",15,1,1,Acme")
}

func TestAssetReportErrors(t *testing.T) {
	tests := []struct {
		name   string
		source fakeSource
		target string
		status int
		code   string
	}{
		{"missing params", sampleSource(), "/asset_report?start_time=100", http.StatusBadRequest, "invalid_window"},
		{"bad epoch", sampleSource(), "/asset_report?start_time=abc&end_time=110", http.StatusBadRequest, "invalid_window"},
		{"bad format", sampleSource(), "/asset_report?start_time=1&end_time=2&format=pdf", http.StatusBadRequest, "sink_failed"},
		{"empty", sampleSource(), "/asset_report?start_time=500&end_time=600", http.StatusNotFound, "empty_report"},
		{"inverted", sampleSource(), "/asset_report?start_time=110&end_time=100", http.StatusNotFound, "empty_report"},
		{"unavailable", fakeSource{err: stderrors.New("no archive")}, "/asset_report?start_time=1&end_time=2", http.StatusServiceUnavailable, "source_unavailable"},
	}

	for _, test := range tests {
		rec := get(t, NewServer(test.source, "xlsx"), test.target)
		assert.Equal(t, test.status, rec.Code, test.name)

		resp := decode(t, rec)
		assert.False(t, resp.Success, test.name)
		assert.Equal(t, test.code, resp.Code, test.name)
	}
}

func TestEmptyReportMessage(t *testing.T) {
	rec := get(t, NewServer(sampleSource(), "csv"), "/asset_report?start_time=500&end_time=600")
	assert.Equal(t, "No data found for start time : 500 and end time : 600", decode(t, rec).Error)
}
