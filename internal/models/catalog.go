package models

// CatalogItem is a skin listed inside a case or collection
type CatalogItem struct {
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
	Image  string `json:"image"`
}

// CatalogCollection is a case, capsule or map collection from the static catalog
type CatalogCollection struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Image string        `json:"image"`
	Type  string        `json:"type"`
	Items []CatalogItem `json:"items"`
}

// CatalogSummary is the overview row for a collection (no items)
type CatalogSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}
