package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
)

// Columns is the header of every export, in order.
var Columns = []string{
	"id", "title", "company", "location", "source", "status", "applied_at", "recruiter_reply_at", "notes",
}

// SheetName is the worksheet holding applications in XLSX exports.
const SheetName = "applications"

const dateLayout = time.DateOnly

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Payload is serialized data ready to upload.
type Payload struct {
	Content   []byte
	MimeType  string
	Extension string
}

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", errors.Newf("unsupported export format %q", s).
			Component("export").
			Category(errors.CategoryValidation).
			Build()
	}
}

// MimeType returns the content type of the format.
func (f Format) MimeType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Encode serializes apps in the format.
func (f Format) Encode(apps []entities.JobApplication) (*Payload, error) {
	var content []byte
	var err error
	switch f {
	case FormatCSV:
		content, err = CSV(apps)
	case FormatXLSX:
		content, err = XLSX(apps)
	default:
		return nil, errors.Newf("unsupported export format %q", string(f)).
			Component("export").
			Category(errors.CategoryValidation).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return &Payload{Content: content, MimeType: f.MimeType(), Extension: string(f)}, nil
}

func record(a *entities.JobApplication) []string {
	return []string{
		strconv.FormatUint(uint64(a.ID), 10),
		a.Title,
		a.Company,
		a.Location,
		a.Source,
		string(a.Status),
		formatDate(&a.AppliedAt),
		formatDate(a.RecruiterReplyAt),
		a.Notes,
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// CSV writes apps as UTF-8 CSV with a header row.
func CSV(apps []entities.JobApplication) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, exportError(err, "csv")
	}
	for i := range apps {
		if err := w.Write(record(&apps[i])); err != nil {
			return nil, exportError(err, "csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, exportError(err, "csv")
	}
	return buf.Bytes(), nil
}

// XLSX writes apps to a workbook with a single "applications" sheet.
func XLSX(apps []entities.JobApplication) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, exportError(err, "xlsx")
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, exportError(err, "xlsx")
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, exportError(err, "xlsx")
	}

	for i := range apps {
		a := &apps[i]
		row := []any{
			a.ID, a.Title, a.Company, a.Location, a.Source, string(a.Status),
			formatDate(&a.AppliedAt), formatDate(a.RecruiterReplyAt), a.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, exportError(err, "xlsx")
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, exportError(err, "xlsx")
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, exportError(err, "xlsx")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, exportError(err, "xlsx")
	}
	return buf.Bytes(), nil
}

func exportError(err error, format string) error {
	return errors.New(fmt.Errorf("%s export: %w", format, err)).
		Component("export").
		Category(errors.CategoryExport).
		Context("format", format).
		Build()
}
