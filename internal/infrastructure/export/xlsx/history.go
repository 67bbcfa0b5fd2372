package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

const SheetName = "History"

var header = []any{
	"Checked At", "Registration", "Make", "Colour", "Fuel Type", "Year",
	"Tax Status", "Tax Due", "MOT Status", "MOT Expiry", "Engine (cc)", "CO2 (g/km)",
}

// WriteHistory renders history entries, newest first, as a single-sheet
// workbook. Times are rendered in loc.
func WriteHistory(w io.Writer, entries []domain.HistoryEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		v := entry.Data
		row := []any{
			entry.Time().In(loc).Format("2006-01-02 15:04:05"),
			entry.Plate.String(),
			v.Make,
			v.Colour,
			v.FuelType,
			v.YearOfManufacture,
			v.TaxStatus.Display(),
			domain.FormatDate(v.TaxDueDate),
			v.MOTStatus,
			domain.FormatDate(v.MOTExpiryDate),
			optionalInt(v.EngineCapacity),
			optionalInt(v.CO2Emissions),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "L", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
