package models

// StockRecord captures one row of the protective-equipment inventory.
type StockRecord struct {
	Region   string `json:"region_name"`
	Product  string `json:"product_name"`
	Year     int    `json:"year_of_manufacture"`
	Quantity int    `json:"quantity"`
	Required int    `json:"required_quantity"` // zero when the source has no requirement column
}

// Filter restricts the records that take part in a report. Empty dimensions match everything.
type Filter struct {
	Products []string `json:"products,omitempty"`
	Regions  []string `json:"regions,omitempty"`
	Years    []int    `json:"years,omitempty"`
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return len(f.Products) == 0 && len(f.Regions) == 0 && len(f.Years) == 0
}
