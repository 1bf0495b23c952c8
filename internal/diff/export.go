package diff

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Категории"

// ExportXLSX writes the partition to a transient spreadsheet, one row per
// record, and returns its path. The filename is prefixed with the partition
// label. The caller transmits the file and removes it afterwards; dir
// defaults to the system temp directory.
func (p Partition) ExportXLSX(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to drop default sheet: %v", err)
	}

	header := []interface{}{"Название", "Ссылка", "Поисковая ссылка", "Тип"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header: %v", err)
	}

	for i, record := range p.Records {
		row := []interface{}{record.Name, record.URL, record.SearchURL, record.Type}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", p.Label, uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export file: %v", err)
	}
	return path, nil
}
