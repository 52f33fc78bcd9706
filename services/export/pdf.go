package export

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/go-pdf/fpdf"

	"job-tracker-backend/models/jobs"
)

const (
	pdfMargin      = 15.0 // mm
	pdfLineHeight  = 7.0
	pdfTitleHeight = 10.0
	pdfPageHeight  = 297.0 // A4 portrait
	pdfPageWidth   = 210.0
	pdfTitle       = "Job Applications"
)

// PDFLine renders one job as it appears in the PDF listing.
func PDFLine(j jobs.Job) string {
	applied := j.AppliedOn()
	if applied == "" {
		applied = "-"
	}
	return fmt.Sprintf("%s | %s | %s | %s", j.Company, j.Role, j.Status, applied)
}

// paginate splits lines into pages. The running offset starts below the
// title on the first page and at the top margin afterwards; a line that
// would cross the printable bottom starts a new page. There is always at
// least one page.
func paginate(lines []string) [][]string {
	bottom := pdfPageHeight - pdfMargin
	pages := [][]string{nil}
	y := pdfMargin + pdfTitleHeight
	for _, line := range lines {
		if y+pdfLineHeight > bottom {
			pages = append(pages, nil)
			y = pdfMargin
		}
		pages[len(pages)-1] = append(pages[len(pages)-1], line)
		y += pdfLineHeight
	}
	return pages
}

// fitLine cuts s with an ellipsis so it fits width in the current font.
// s is already translated to the single-byte font encoding.
func fitLine(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	for len(s) > 0 && pdf.GetStringWidth(s+ellipsis) > width {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}

// WritePDF writes an A4 listing with one line per job, company | role |
// status | applied date. An empty list yields one page holding the title.
func WritePDF(w io.Writer, list []jobs.Job) error {
	lines := make([]string, len(list))
	for i, j := range list {
		lines[i] = PDFLine(j)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(pdfTitle, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, page := range paginate(lines) {
		pdf.AddPage()
		if i == 0 {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, pdfTitleHeight, pdfTitle, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range page {
			pdf.CellFormat(0, pdfLineHeight, fitLine(pdf, tr(line), pdfPageWidth-2*pdfMargin), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}
