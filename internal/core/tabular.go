package core

// tabular.go turns an uploaded file into header names plus RawRows.
//
// CSV and XLSX are supported, chosen by file extension. Cells are cleaned
// of common spreadsheet artifacts (BOM, ="..." formula wrapping, stray
// quotes). Headers are matched to canonical field names case-insensitively;
// unknown columns are kept in Headers but not copied into rows.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// TableFormat identifies a tabular file encoding.
type TableFormat string

const (
	FormatCSV  TableFormat = "csv"
	FormatXLSX TableFormat = "xlsx"
)

// ParseTableFormat accepts "csv" or "xlsx" in any case.
func ParseTableFormat(s string) (TableFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FormatForFilename picks the decoder for an upload by extension.
func FormatForFilename(name string) TableFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ContentType is the MIME type for downloads in this format.
func (f TableFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Table is a decoded import file.
type Table struct {
	// Headers are the observed column names, canonicalized where known.
	Headers []string
	// Rows are the data rows in file order, keyed by canonical field name.
	Rows []RawRow
}

// MissingHeaders returns the required import columns absent from t.
func (t Table) MissingHeaders() []string {
	have := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		have[h] = true
	}
	var missing []string
	for _, h := range ImportHeaders {
		if !have[h] {
			missing = append(missing, h)
		}
	}
	return missing
}

// DecodeTable reads r according to the extension of filename.
// Failures are *DecodeError.
func DecodeTable(filename string, r io.Reader) (Table, error) {
	format := FormatForFilename(filename)
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, &DecodeError{Format: string(format), Err: err}
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = readXLSX(data)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return Table{}, &DecodeError{Format: string(format), Err: err}
	}
	if len(records) == 0 {
		return Table{}, &DecodeError{Format: string(format), Err: errors.New("file is empty")}
	}
	return buildTable(records), nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = sanitizeUTF8(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func buildTable(records [][]string) Table {
	header := records[0]
	t := Table{Headers: make([]string, len(header))}

	// position -> canonical field, "" for unknown columns
	fields := make([]string, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if canonical, ok := canonicalHeader(name); ok {
			fields[i] = canonical
			name = canonical
		}
		t.Headers[i] = name
	}

	t.Rows = make([]RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(RawRow, len(ImportHeaders))
		for i, field := range fields {
			if field == "" {
				continue
			}
			if i < len(rec) {
				row[field] = CleanCell(rec[i])
			} else {
				row[field] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

var headerIndex = func() map[string]string {
	idx := make(map[string]string, len(LeadFields))
	for _, f := range LeadFields {
		idx[strings.ToLower(f.Name)] = f.Name
	}
	return idx
}()

func canonicalHeader(h string) (string, bool) {
	name, ok := headerIndex[strings.ToLower(strings.ReplaceAll(h, " ", ""))]
	return name, ok
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, Excel's ="..." text wrapping and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}
	return buf.Bytes()
}
