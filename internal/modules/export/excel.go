package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Activity"

// ToExcel renders doc as a single-sheet .xlsx workbook.
func ToExcel(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("export: sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: style: %w", err)
	}

	row := 1
	set := func(col int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}
	header := func(cols ...string) error {
		for i, c := range cols {
			if err := set(i+1, c); err != nil {
				return err
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(cols), row)
		return f.SetCellStyle(sheetName, first, last, bold)
	}

	if err := set(1, doc.Title); err != nil {
		return nil, fmt.Errorf("export: cell: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return nil, fmt.Errorf("export: style: %w", err)
	}
	row++
	for _, m := range doc.Meta {
		if err := firstErr(set(1, m.Key), set(2, m.Value)); err != nil {
			return nil, fmt.Errorf("export: cell: %w", err)
		}
		row++
	}
	row++

	switch {
	case len(doc.Questions) > 0:
		if err := header("#", "Question", "Options", "Answer", "Explanation"); err != nil {
			return nil, fmt.Errorf("export: header: %w", err)
		}
		row++
		for _, q := range doc.Questions {
			opts := make([]string, 0, len(q.Options))
			for i, o := range q.Options {
				opts = append(opts, OptionLabel(i)+") "+o)
			}
			if err := firstErr(set(1, q.Number), set(2, q.Text), set(3, strings.Join(opts, "\n")),
				set(4, q.Answer), set(5, q.Explanation)); err != nil {
				return nil, fmt.Errorf("export: cell: %w", err)
			}
			row++
		}
		_ = f.SetColWidth(sheetName, "B", "B", 60)
		_ = f.SetColWidth(sheetName, "C", "C", 40)
		_ = f.SetColWidth(sheetName, "E", "E", 50)
	case doc.Summary != "" || len(doc.KeyPoints) > 0:
		if err := header("Summary"); err != nil {
			return nil, fmt.Errorf("export: header: %w", err)
		}
		row++
		if err := set(1, doc.Summary); err != nil {
			return nil, fmt.Errorf("export: cell: %w", err)
		}
		row += 2
		if err := header("Key points"); err != nil {
			return nil, fmt.Errorf("export: header: %w", err)
		}
		row++
		for _, kp := range doc.KeyPoints {
			if err := set(1, kp); err != nil {
				return nil, fmt.Errorf("export: cell: %w", err)
			}
			row++
		}
		_ = f.SetColWidth(sheetName, "A", "A", 100)
	default:
		if err := header("Field", "Value"); err != nil {
			return nil, fmt.Errorf("export: header: %w", err)
		}
		row++
		for _, fl := range doc.Fields {
			if err := firstErr(set(1, fl.Key), set(2, fl.Value)); err != nil {
				return nil, fmt.Errorf("export: cell: %w", err)
			}
			row++
		}
		_ = f.SetColWidth(sheetName, "A", "A", 30)
		_ = f.SetColWidth(sheetName, "B", "B", 80)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
