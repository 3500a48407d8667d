package pricing

import "github.com/Sternrassler/apparel-pricing/pkg/catalog"

// StockLevel is the stock of one color and size.
type StockLevel struct {
	Warehouses map[string]int `json:"warehouses"`
	Total      int            `json:"total"`
}

// Inventory maps color to size to stock level.
type Inventory map[string]map[string]StockLevel

// NormalizeInventory groups a getInventoryLevels reply by color and size.
// Quantities reported twice for the same warehouse are summed.
func NormalizeInventory(resp *catalog.InventoryResponse) Inventory {
	inv := make(Inventory)
	if resp == nil {
		return inv
	}
	for _, item := range resp.Items {
		size := item.Size
		if size == "" {
			size = UnknownSize
		}
		sizes, ok := inv[item.Color]
		if !ok {
			sizes = make(map[string]StockLevel)
			inv[item.Color] = sizes
		}
		level, ok := sizes[size]
		if !ok {
			level = StockLevel{Warehouses: make(map[string]int)}
		}
		for _, loc := range item.Locations {
			level.Warehouses[loc.WarehouseID] += loc.Quantity
			level.Total += loc.Quantity
		}
		sizes[size] = level
	}
	return inv
}

// Total returns the stock of a color across all sizes.
func (inv Inventory) Total(color string) int {
	total := 0
	for _, level := range inv[color] {
		total += level.Total
	}
	return total
}
