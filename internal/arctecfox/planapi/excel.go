package planapi

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Sheet1"

// Columns that lead the sheet when present. Other keys follow in
// alphabetical order.
var knownColumns = []string{
	"task_name",
	"maintenance_interval",
	"instructions",
	"reason",
	"engineering_rationale",
	"safety_precautions",
	"common_failures_prevented",
	"usage_insights",
	"scheduled_dates",
	"asset_name",
	"asset_model",
}

// Workbook renders tasks as an xlsx file with one header row of task keys
// and one row per task.
func Workbook(tasks []Task) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	columns := columnsOf(tasks)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if len(header) > 0 {
		if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, task := range tasks {
		row := make([]interface{}, len(columns))
		for j, c := range columns {
			row[j] = cellValue(task[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func columnsOf(tasks []Task) []string {
	seen := make(map[string]bool)
	for _, task := range tasks {
		for k := range task {
			seen[k] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, c := range knownColumns {
		if seen[c] {
			columns = append(columns, c)
			delete(seen, c)
		}
	}
	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

// cellValue flattens lists into a bracketed, comma separated string.
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		return fmt.Sprint(val)
	case map[string]interface{}:
		return fmt.Sprint(val)
	default:
		return val
	}
}
