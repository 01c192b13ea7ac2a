package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportColumns is the column order of every export.
var ExportColumns = []string{
	FieldID, FieldFullName, FieldEmail, FieldPhone, FieldCity, FieldPropertyType, FieldBHK,
	FieldPurpose, FieldBudgetMin, FieldBudgetMax, FieldTimeline, FieldSource, FieldStatus,
	FieldNotes, FieldTags, FieldOwnerID, FieldUpdatedAt,
}

const exportPageSize = 500

const sheetName = "Leads"

// Export writes every lead matching filter to w, newest first, and returns
// the number of leads written.
func (s *Service) Export(ctx context.Context, filter ListFilter, format TableFormat, w io.Writer) (int, error) {
	if _, err := requireActor(ctx); err != nil {
		return 0, err
	}

	var records [][]string
	for offset := 0; ; offset += exportPageSize {
		leads, err := withStore(s, "find_many", func() ([]Lead, error) {
			return s.store.FindMany(ctx, filter, PageRequest{Limit: exportPageSize, Offset: offset})
		})
		if err != nil {
			return 0, err
		}
		for _, l := range leads {
			records = append(records, ExportRecord(l))
		}
		if len(leads) < exportPageSize {
			break
		}
	}

	if err := writeTable(format, ExportColumns, records, w); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ImportTemplate writes an empty import file containing only the header row.
func (s *Service) ImportTemplate(format TableFormat, w io.Writer) error {
	return writeTable(format, ImportHeaders, nil, w)
}

// ExportRecord flattens a lead into ExportColumns order.
func ExportRecord(l Lead) []string {
	return []string{
		l.ID.String(),
		l.FullName,
		optString(l.Email),
		l.Phone,
		string(l.City),
		string(l.PropertyType),
		optBHK(l.BHK),
		string(l.Purpose),
		optInt(l.BudgetMin),
		optInt(l.BudgetMax),
		string(l.Timeline),
		string(l.Source),
		string(l.Status),
		optString(l.Notes),
		strings.Join(l.Tags, ","),
		l.OwnerID,
		l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeTable(format TableFormat, header []string, records [][]string, w io.Writer) error {
	if format == FormatXLSX {
		return writeXLSX(header, records, w)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func writeXLSX(header []string, records [][]string, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, first, last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, rec := range records {
		if err := setRow(f, i+2, rec); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func optString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func optBHK(p *BHK) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
