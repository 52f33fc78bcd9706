package export

import (
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/models/jobs"
)

// WriteCSV writes a header row and one row per job.
func WriteCSV(w io.Writer, list []jobs.Job) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, j := range list {
		cells := row(j)
		for i := range cells {
			cells[i] = csvCell(cells[i])
		}
		if err := cw.Write(cells); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// csvCell quotes a leading formula trigger so spreadsheets open the cell as
// text.
func csvCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
