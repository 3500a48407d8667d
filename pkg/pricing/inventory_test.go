package pricing

import (
	"testing"

	"github.com/Sternrassler/apparel-pricing/pkg/catalog"
)

func TestNormalizeInventory(t *testing.T) {
	resp := &catalog.InventoryResponse{Style: "PC61", Items: []catalog.InventoryItem{
		{Color: "White", Size: "M", Locations: []catalog.WarehouseQuantity{{WarehouseID: "1", Quantity: 100}, {WarehouseID: "2", Quantity: 20}}},
		{Color: "White", Size: "L", Locations: []catalog.WarehouseQuantity{{WarehouseID: "1", Quantity: 5}}},
		{Color: "White", Size: "M", Locations: []catalog.WarehouseQuantity{{WarehouseID: "1", Quantity: 1}}},
		{Color: "Black", Size: "S"},
	}}

	inv := NormalizeInventory(resp)

	m := inv["White"]["M"]
	if m.Total != 121 {
		t.Errorf("White/M total = %d, want 121", m.Total)
	}
	if m.Warehouses["1"] != 101 || m.Warehouses["2"] != 20 {
		t.Errorf("White/M warehouses = %v", m.Warehouses)
	}
	if inv.Total("White") != 126 {
		t.Errorf("White total = %d, want 126", inv.Total("White"))
	}
	if _, ok := inv["Black"]["S"]; !ok {
		t.Error("sizes without stock must still be listed")
	}
	if len(NormalizeInventory(nil)) != 0 {
		t.Error("nil reply should give empty inventory")
	}
}
