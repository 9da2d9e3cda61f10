package metrics

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/ppiankov/openinfo/internal/model"
	"github.com/xuri/excelize/v2"
)

// CountWorkbookRows counts non-blank rows across every sheet of an
// .xlsx/.xlsm workbook. A sheet with no cells contributes 0.
func CountWorkbookRows(path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, model.Analysisf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	total := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return 0, model.Analysisf("read sheet %q: %v", sheet, err)
		}
		for _, row := range rows {
			if !blankRow(row) {
				total++
			}
		}
	}
	return total, nil
}

// CountLegacyWorkbookRows counts non-empty rows across every worksheet of a
// BIFF .xls workbook
func CountLegacyWorkbookRows(path string) (int, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return 0, model.Analysisf("open xls: %v", err)
	}
	if wb == nil {
		return 0, model.Analysisf("open xls: no workbook stream in %s", path)
	}

	total := 0
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		for r := 0; r <= int(sheet.MaxRow); r++ {
			if row := legacyRow(sheet, r); row != nil && !blankLegacyRow(row) {
				total++
			}
		}
	}
	return total, nil
}

// legacyRow returns row r, or nil when the sheet has nothing at r.
// WorkSheet.Row dereferences a nil row for such indexes.
func legacyRow(sheet *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(r)
}

// maxLegacyCols is the BIFF8 column limit
const maxLegacyCols = 256

func blankLegacyRow(row *xls.Row) bool {
	// Cells written without a ROW record report an empty column range
	last := row.LastCol()
	if last <= row.FirstCol() {
		last = maxLegacyCols
	}
	for c := row.FirstCol(); c < last; c++ {
		if strings.TrimSpace(row.Col(c)) != "" {
			return false
		}
	}
	return true
}

// CountCSVRows counts parsed records. Ragged rows are accepted.
func CountCSVRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, model.Analysisf("open csv: %v", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	total := 0
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return 0, model.Analysisf("parse csv: %v", err)
		}
		total++
	}
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
