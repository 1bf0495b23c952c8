package stats

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/example/wildsearch/pkg/models"
)

func sampleItems() []models.Item {
	return []models.Item{
		{Name: "Икона нательная", CategoryName: "Ювелирные иконы", CategoryURL: "https://www.wildberries.ru/catalog/yuvelirnye-ukrasheniya/ikony", Price: 1, Purchases: 4, Turnover: 4},
		{Name: "Икона настольная", Price: 2, Purchases: 6, Turnover: 12},
		{Name: "Икона дорожная", Price: 3, Purchases: 4, Turnover: 12},
	}
}

func TestNew_EmptyDataSet(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyDataSet) {
		t.Fatalf("err = %v, want ErrEmptyDataSet", err)
	}
}

func TestBasicMetrics(t *testing.T) {
	s, err := New(sampleItems())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := s.GoodsCount(); got != 3 {
		t.Errorf("GoodsCount = %d, want 3", got)
	}
	if got := s.PriceMax(); got != 3 {
		t.Errorf("PriceMax = %v, want 3", got)
	}
	if got := s.PriceMean(); got != 2 {
		t.Errorf("PriceMean = %v, want 2", got)
	}
	if got := s.SalesSum(); got != 14 {
		t.Errorf("SalesSum = %d, want 14", got)
	}
	if got := s.SalesMean(); got != 4.67 {
		t.Errorf("SalesMean = %v, want 4.67", got)
	}
	if got := s.SalesMedian(); got != 4 {
		t.Errorf("SalesMedian = %v, want 4", got)
	}
	if got := s.TurnoverSum(); got != 28 {
		t.Errorf("TurnoverSum = %v, want 28", got)
	}
}

func TestMedian_EvenCount(t *testing.T) {
	items := []models.Item{
		{Purchases: 1}, {Purchases: 3}, {Purchases: 5}, {Purchases: 100},
	}
	s, err := New(items)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.SalesMedian(); got != 4 {
		t.Errorf("SalesMedian = %v, want 4", got)
	}
}

func TestCategoryNameAndURL(t *testing.T) {
	s, err := New(sampleItems())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.CategoryName(); got != "Ювелирные иконы" {
		t.Errorf("CategoryName = %q", got)
	}
	if got := s.CategoryURL(); got != "https://www.wildberries.ru/catalog/yuvelirnye-ukrasheniya/ikony" {
		t.Errorf("CategoryURL = %q", got)
	}
}

func TestSummaryMessage(t *testing.T) {
	s, err := New(sampleItems())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg := s.SummaryMessage()
	for _, fragment := range []string{
		"[Ювелирные иконы](https://www.wildberries.ru/catalog/yuvelirnye-ukrasheniya/ikony)",
		"Количество товаров",
		"Продаж всего: 14 шт.",
		"Медиана продаж: 4 шт.",
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("summary message missing %q:\n%s", fragment, msg)
		}
	}
}

func TestExportXLSX(t *testing.T) {
	s, err := New(sampleItems())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path, err := s.ExportXLSX(t.TempDir())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("export file is empty")
	}
	if !strings.HasPrefix(strings.TrimSuffix(info.Name(), ".xlsx"), "wb_category_") {
		t.Fatalf("export filename = %q", info.Name())
	}
}
