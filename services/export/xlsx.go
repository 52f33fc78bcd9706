package export

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"job-tracker-backend/models/jobs"
)

// SheetName is the worksheet holding the exported jobs.
const SheetName = "Jobs"

// WriteXLSX writes a workbook with a header row and one row per job. An
// empty list produces a header-only sheet.
func WriteXLSX(w io.Writer, list []jobs.Job) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, j := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		values := row(j)
		out := make([]interface{}, len(values))
		for k, v := range values {
			out[k] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &out); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
