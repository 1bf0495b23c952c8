// Package diff reconciles two time-separated category listings into
// added/removed/full partitions and exports each one as a spreadsheet.
package diff

import (
	"net/url"
	"strings"

	"github.com/example/wildsearch/pkg/models"
)

// Partition labels, also used as export filename prefixes.
const (
	LabelAdded   = "added"
	LabelRemoved = "removed"
	LabelFull    = "full"
)

const searchURLTemplate = "https://www.wildberries.ru/catalog/0/search.aspx?search="

// Category type tags derived from the category URL.
const (
	TypeNew     = "Новинки"
	TypePromo   = "Промо"
	TypeRegular = "Обычная"
)

// Record is one category augmented with display fields for the report.
type Record struct {
	models.Category
	SearchURL string
	Type      string
}

// Partition is one view of the same two snapshots. Count deliberately
// differs between partitions: added/removed report the raw row count while
// full reports the deduplicated one. The broadcast message quotes both
// numbers, so the asymmetry is load-bearing.
type Partition struct {
	Label   string
	Records []Record
	count   int
}

// Count returns the partition's reported row count.
func (p Partition) Count() int {
	return p.count
}

// Result holds all three partitions of one diff run.
type Result struct {
	Added   Partition
	Removed Partition
	Full    Partition
}

// Compare computes the snapshot diff. Dedup keeps the first record in input
// order, so callers must not reorder a snapshot between load and diff.
// Empty inputs degrade to empty/full-copy partitions, never an error.
func Compare(old, latest []models.Category) Result {
	addedRaw := subtract(latest, old)
	removedRaw := subtract(old, latest)

	return Result{
		Added: Partition{
			Label:   LabelAdded,
			Records: enrich(dedupByName(addedRaw)),
			count:   len(addedRaw),
		},
		Removed: Partition{
			Label:   LabelRemoved,
			Records: enrich(dedupByName(removedRaw)),
			count:   len(removedRaw),
		},
		Full: fullPartition(old, latest),
	}
}

// subtract returns rows of a with no exact (name, url) match in b,
// duplicates preserved.
func subtract(a, b []models.Category) []models.Category {
	seen := make(map[models.Category]struct{}, len(b))
	for _, c := range b {
		seen[c] = struct{}{}
	}

	var out []models.Category
	for _, c := range a {
		if _, ok := seen[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// fullPartition keeps rows whose (name, url) tuple appears exactly once
// across the combined multiset of both snapshots, then dedups by URL and
// again by name.
func fullPartition(old, latest []models.Category) Partition {
	combined := make([]models.Category, 0, len(old)+len(latest))
	combined = append(combined, old...)
	combined = append(combined, latest...)

	occurrences := make(map[models.Category]int, len(combined))
	for _, c := range combined {
		occurrences[c]++
	}

	var unique []models.Category
	for _, c := range combined {
		if occurrences[c] == 1 {
			unique = append(unique, c)
		}
	}

	records := enrich(dedupByName(dedupByURL(unique)))
	return Partition{
		Label:   LabelFull,
		Records: records,
		count:   len(records),
	}
}

func dedupByName(categories []models.Category) []models.Category {
	seen := make(map[string]struct{}, len(categories))
	var out []models.Category
	for _, c := range categories {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupByURL(categories []models.Category) []models.Category {
	seen := make(map[string]struct{}, len(categories))
	var out []models.Category
	for _, c := range categories {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

func enrich(categories []models.Category) []Record {
	records := make([]Record, 0, len(categories))
	for _, c := range categories {
		records = append(records, Record{
			Category:  c,
			SearchURL: searchURLTemplate + url.QueryEscape(c.Name),
			Type:      categoryType(c.URL),
		})
	}
	return records
}

// categoryType classifies a category by URL slug. Ordered substring match,
// first hit wins.
func categoryType(categoryURL string) string {
	switch {
	case strings.Contains(categoryURL, "novinki"):
		return TypeNew
	case strings.Contains(categoryURL, "promo"):
		return TypePromo
	default:
		return TypeRegular
	}
}
