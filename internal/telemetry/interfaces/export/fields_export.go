package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetry "telemetry-console/internal/telemetry/domain"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var header = []string{"Group", "Field", "Key", "Value"}

// ContentType returns the MIME type for a format, or "" when unsupported.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return ""
	}
}

// Build renders table in the given format.
func Build(format string, table telemetry.Table) ([]byte, error) {
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := WriteFieldsCSV(&buf, table); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatXLSX:
		return BuildFieldsXLSX(table)
	case FormatPDF:
		return BuildFieldsPDF(table)
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}

// WriteFieldsCSV writes one row per field.
func WriteFieldsCSV(w io.Writer, table telemetry.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, field := range table.Fields {
		if err := writer.Write([]string{field.GroupLabel, field.Label, field.Path(), field.Value}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// BuildFieldsXLSX renders a workbook with a summary and a fields sheet.
func BuildFieldsXLSX(table telemetry.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	fieldsSheet := "fields"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Device Telemetry")
	_ = f.SetCellValue(summarySheet, "A3", "Tenant")
	_ = f.SetCellValue(summarySheet, "B3", table.TenantID)
	_ = f.SetCellValue(summarySheet, "A4", "Device")
	_ = f.SetCellValue(summarySheet, "B4", table.DeviceID)
	_ = f.SetCellValue(summarySheet, "A5", "Reported")
	_ = f.SetCellValue(summarySheet, "B5", table.TS.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Fields")
	_ = f.SetCellValue(summarySheet, "B6", len(table.Fields))

	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(fieldsSheet, cell, title)
	}
	for i, field := range table.Fields {
		row := i + 2
		_ = f.SetCellValue(fieldsSheet, fmt.Sprintf("A%d", row), field.GroupLabel)
		_ = f.SetCellValue(fieldsSheet, fmt.Sprintf("B%d", row), field.Label)
		_ = f.SetCellValue(fieldsSheet, fmt.Sprintf("C%d", row), field.Path())
		_ = f.SetCellValue(fieldsSheet, fmt.Sprintf("D%d", row), field.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFieldsPDF renders a one-table PDF of the fields.
func BuildFieldsPDF(table telemetry.Table) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Device Telemetry")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant: %s", table.TenantID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Device: %s", table.DeviceID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Reported: %s", table.TS.UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Group", "1", 0, "C", false, 0, "")
	pdf.CellFormat(85, 6, "Field", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, field := range table.Fields {
		pdf.CellFormat(45, 6, field.GroupLabel, "1", 0, "L", false, 0, "")
		pdf.CellFormat(85, 6, field.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, field.Value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
