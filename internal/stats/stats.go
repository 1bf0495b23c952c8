// Package stats computes the descriptive summary over a finished crawl
// job's item set and renders it for the chat.
package stats

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/example/wildsearch/internal/format"
	"github.com/example/wildsearch/pkg/models"
)

// ErrEmptyDataSet marks a crawl result with no usable items: a wrong link
// or an empty category. Not retryable.
var ErrEmptyDataSet = errors.New("stats: data set is empty")

// CategoryStats is an immutable view over one job's items.
type CategoryStats struct {
	items []models.Item
}

// New validates the item set. An empty set is a data-quality error the
// caller reports to the user, not a crash.
func New(items []models.Item) (*CategoryStats, error) {
	if len(items) == 0 {
		return nil, ErrEmptyDataSet
	}
	return &CategoryStats{items: items}, nil
}

// GoodsCount returns the number of scraped items.
func (s *CategoryStats) GoodsCount() int {
	return len(s.items)
}

// PriceMax returns the highest item price.
func (s *CategoryStats) PriceMax() float64 {
	max := s.items[0].Price
	for _, it := range s.items[1:] {
		if it.Price > max {
			max = it.Price
		}
	}
	return max
}

// PriceMean returns the average price, rounded to two decimals.
func (s *CategoryStats) PriceMean() float64 {
	sum := 0.0
	for _, it := range s.items {
		sum += it.Price
	}
	return round2(sum / float64(len(s.items)))
}

// SalesSum returns the total purchases across the category.
func (s *CategoryStats) SalesSum() int {
	sum := 0
	for _, it := range s.items {
		sum += it.Purchases
	}
	return sum
}

// SalesMean returns the average purchases per item, rounded to two decimals.
func (s *CategoryStats) SalesMean() float64 {
	return round2(float64(s.SalesSum()) / float64(len(s.items)))
}

// SalesMedian returns the median purchases per item.
func (s *CategoryStats) SalesMedian() float64 {
	values := make([]float64, len(s.items))
	for i, it := range s.items {
		values[i] = float64(it.Purchases)
	}
	return median(values)
}

// TurnoverSum returns the total turnover across the category.
func (s *CategoryStats) TurnoverSum() float64 {
	sum := 0.0
	for _, it := range s.items {
		sum += it.Turnover
	}
	return sum
}

// TurnoverMean returns the average turnover per item.
func (s *CategoryStats) TurnoverMean() float64 {
	return round2(s.TurnoverSum() / float64(len(s.items)))
}

// TurnoverMedian returns the median turnover per item.
func (s *CategoryStats) TurnoverMedian() float64 {
	values := make([]float64, len(s.items))
	for i, it := range s.items {
		values[i] = it.Turnover
	}
	return median(values)
}

// CategoryName returns the first non-empty category name in the set.
func (s *CategoryStats) CategoryName() string {
	for _, it := range s.items {
		if it.CategoryName != "" {
			return it.CategoryName
		}
	}
	return ""
}

// CategoryURL returns the first non-empty category URL in the set.
func (s *CategoryStats) CategoryURL() string {
	for _, it := range s.items {
		if it.CategoryURL != "" {
			return it.CategoryURL
		}
	}
	return ""
}

// SummaryMessage renders the Markdown summary sent ahead of the export file.
func (s *CategoryStats) SummaryMessage() string {
	return fmt.Sprintf(`Ваш отчет по категории [%s](%s) находится в следующем сообщении.

Краткая сводка:
Количество товаров: `+"`%s`"+`
Продаж всего: %s (на %s)
В среднем продаются по: %s (на %s)
Медиана продаж: %s (на %s)`,
		s.CategoryName(), s.CategoryURL(),
		format.Number(float64(s.GoodsCount())),
		format.Quantity(float64(s.SalesSum())), format.Currency(s.TurnoverSum()),
		format.Quantity(s.SalesMean()), format.Currency(s.TurnoverMean()),
		format.Quantity(s.SalesMedian()), format.Currency(s.TurnoverMedian()),
	)
}

// ExportXLSX dumps the full item table to a transient spreadsheet and
// returns its path. The caller transmits and removes the file.
func (s *CategoryStats) ExportXLSX(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	const sheet = "Товары"

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to drop default sheet: %v", err)
	}

	header := []interface{}{"Название", "Ссылка", "Бренд", "Цена", "Продажи", "Выручка"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header: %v", err)
	}

	for i, it := range s.items {
		row := []interface{}{it.Name, it.URL, it.Brand, it.Price, it.Purchases, it.Turnover}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("wb_category_%s.xlsx", uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export file: %v", err)
	}
	return path, nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
