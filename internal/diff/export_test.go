package diff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/wildsearch/pkg/models"
)

func TestExportXLSX(t *testing.T) {
	old := []models.Category(nil)
	latest := []models.Category{
		{Name: "Кигуруми", URL: "https://www.wildberries.ru/catalog/zhenshchinam/kigurumi"},
		{Name: "Обувь", URL: "https://www.wildberries.ru/catalog/obuv"},
	}
	result := Compare(old, latest)

	dir := t.TempDir()
	path, err := result.Added.ExportXLSX(dir)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	if !strings.HasPrefix(filepath.Base(path), LabelAdded+"_") {
		t.Errorf("export filename %q must be prefixed with the partition label", filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat export file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("export file is empty")
	}
}

func TestExportXLSX_EmptyPartition(t *testing.T) {
	result := Compare(nil, nil)

	path, err := result.Full.ExportXLSX(t.TempDir())
	if err != nil {
		t.Fatalf("ExportXLSX on empty partition: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat export file: %v", err)
	}
}
