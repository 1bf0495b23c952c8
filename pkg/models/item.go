package models

// Item is one already-extracted product record from a finished crawl job.
type Item struct {
	Name         string  `json:"wb_name"`
	URL          string  `json:"wb_url"`
	Brand        string  `json:"wb_brand_name"`
	CategoryName string  `json:"wb_category_name"`
	CategoryURL  string  `json:"wb_category_url"`
	Price        float64 `json:"wb_price"`
	Purchases    int     `json:"wb_purchases_count"`
	Turnover     float64 `json:"wb_turnover"`
}
