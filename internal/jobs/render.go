package jobs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// reportData is the analysed content of a report, ready for rendering.
type reportData struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Columns     []string
	Rows        [][]string
}

// artifact is a rendered report.
type artifact struct {
	Data        []byte
	ContentType string
	Ext         string
}

func render(format ReportFormat, data reportData) (artifact, error) {
	switch format {
	case FormatPDF:
		b, err := renderPDF(data)
		return artifact{Data: b, ContentType: "application/pdf", Ext: "pdf"}, err
	case FormatExcel:
		b, err := renderExcel(data)
		return artifact{Data: b, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Ext: "xlsx"}, err
	case FormatCSV:
		b, err := renderCSV(data)
		return artifact{Data: b, ContentType: "text/csv", Ext: "csv"}, err
	default:
		return artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func renderPDF(data reportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, data.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if data.Subtitle != "" {
		pdf.CellFormat(0, 6, data.Subtitle, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Generated "+data.GeneratedAt.Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(data.Columns) > 0 {
		width := 180.0 / float64(len(data.Columns))

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range data.Columns {
			pdf.CellFormat(width, 7, c, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 10)
		for _, row := range data.Rows {
			for _, v := range row {
				pdf.CellFormat(width, 7, v, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderExcel(data reportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("render excel: %w", err)
	}

	rows := append([][]string{data.Columns}, data.Rows...)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("render excel: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("render excel: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render excel: %w", err)
	}
	return buf.Bytes(), nil
}

func renderCSV(data reportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Columns); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	if err := w.WriteAll(data.Rows); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}
