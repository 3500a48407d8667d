package cache

import (
	"strings"

	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
)

// KeyFor derives the cache key of a pricing request.
//
// Format: {inventoryKey}_{sizeIndex} for the key family, otherwise
// {style}_{color}_{size} with absent parts dropped. Keys are lower-cased so
// requests differing only in case share an entry.
//
// Example:
//
//	KeyFor(pricing.Request{Style: "PC61", Color: "White"}) == "pc61_white"
func KeyFor(req pricing.Request) string {
	req = req.Normalized()

	var parts []string
	if req.Family() == pricing.FamilyInventoryKey {
		parts = []string{req.InventoryKey, req.SizeIndex}
	} else {
		for _, p := range []string{req.Style, req.Color, req.Size} {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}

	return strings.ToLower(strings.Join(parts, "_"))
}

// InventoryKey derives the cache key of an inventory lookup.
func InventoryKey(style string) string {
	return "inventory_" + strings.ToLower(strings.TrimSpace(style))
}
