package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the report in XLSX output
const SheetName = "Asset Report"

// Sink serializes a report into a downloadable artifact
type Sink interface {
	Write(w io.Writer, report *models.Report) error
	ContentType() string
	Extension() string
}

// NewSink returns the sink for format ("xlsx" or "csv").
func NewSink(format string) (Sink, error) {
	switch format {
	case "xlsx":
		return XLSXSink{}, nil
	case "csv":
		return CSVSink{}, nil
	default:
		return nil, errors.New(errors.ErrSinkFailed).WithData("unsupported format " + format)
	}
}

// Filename is the attachment name for a report over w.
func Filename(s Sink, w models.Window) string {
	return fmt.Sprintf("asset_report_%d_%d.%s", w.Start, w.End, s.Extension())
}

// cells renders a row in column order; nil marks an empty cell. A row
// without a plate is labelled with its asset id.
func cells(row models.ReportRow) []any {
	out := []any{row.LicensePlate, nil, nil, nil, nil, nil}
	if row.LicensePlate == "" && row.AssetID != nil {
		out[0] = "asset " + strconv.FormatInt(*row.AssetID, 10)
	}
	if row.Distance != nil {
		out[1] = *row.Distance
	}
	if row.AverageSpeed != nil {
		out[2] = *row.AverageSpeed
	}
	if row.SpeedViolations != nil {
		out[3] = *row.SpeedViolations
	}
	if row.TripsCompleted != nil {
		out[4] = *row.TripsCompleted
	}
	if row.TransporterName != nil {
		out[5] = *row.TransporterName
	}
	return out
}

type CSVSink struct{}

func (CSVSink) ContentType() string { return "text/csv" }

func (CSVSink) Extension() string { return "csv" }

func (CSVSink) Write(w io.Writer, report *models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.ReportColumns); err != nil {
		return errors.Wrap(errors.ErrSinkFailed, err)
	}

	record := make([]string, len(models.ReportColumns))
	for _, row := range report.Rows {
		for i, v := range cells(row) {
			switch v := v.(type) {
			case nil:
				record[i] = ""
			case float64:
				record[i] = strconv.FormatFloat(v, 'f', -1, 64)
			case int:
				record[i] = strconv.Itoa(v)
			case string:
				record[i] = v
			}
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(errors.ErrSinkFailed, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.ErrSinkFailed, err)
	}
	return nil
}

type XLSXSink struct{}

func (XLSXSink) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXSink) Extension() string { return "xlsx" }

func (XLSXSink) Write(w io.Writer, report *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(errors.ErrSinkFailed, err)
	}

	header := make([]any, len(models.ReportColumns))
	for i, c := range models.ReportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(errors.ErrSinkFailed, err)
	}

	for i, row := range report.Rows {
		for col, v := range cells(row) {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return errors.Wrap(errors.ErrSinkFailed, err)
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return errors.Wrap(errors.ErrSinkFailed, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(errors.ErrSinkFailed, err)
	}
	return nil
}
