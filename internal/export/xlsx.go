package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// WriteXLSX writes stations to a single-sheet workbook. Coordinates are
// written as numbers so spreadsheet formulas can consume them directly.
func WriteXLSX(path string, stations []schema.Station, withOrder bool) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := []string{"name", "line", "latitude", "longitude"}
	if withOrder {
		header = append(header, "order")
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, st := range stations {
		values := []interface{}{st.Name, st.Line, st.Latitude, st.Longitude}
		if withOrder {
			if st.Order != nil {
				values = append(values, *st.Order)
			} else {
				values = append(values, "")
			}
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
