package models

// Category is the minimal identity of one catalog category as seen in a
// single crawl snapshot. Two categories are equal iff both fields match
// exactly.
type Category struct {
	Name string `json:"wb_category_name"`
	URL  string `json:"wb_category_url"`
}
