package cache

import (
	"testing"

	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		req  pricing.Request
		want string
	}{
		{
			name: "style and color",
			req:  pricing.Request{Style: "PC61", Color: "White"},
			want: "pc61_white",
		},
		{
			name: "style color size",
			req:  pricing.Request{Style: "PC61", Color: "White", Size: "2XL"},
			want: "pc61_white_2xl",
		},
		{
			name: "style and size without color",
			req:  pricing.Request{Style: "PC61", Size: "M"},
			want: "pc61_m",
		},
		{
			name: "style only",
			req:  pricing.Request{Style: " PC61 "},
			want: "pc61",
		},
		{
			name: "inventory key family",
			req:  pricing.Request{InventoryKey: "ABC123", SizeIndex: "4"},
			want: "abc123_4",
		},
		{
			name: "style takes precedence over key",
			req:  pricing.Request{Style: "PC61", InventoryKey: "ABC123", SizeIndex: "4"},
			want: "pc61",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFor(tt.req); got != tt.want {
				t.Errorf("KeyFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyFor_CaseInsensitive(t *testing.T) {
	a := KeyFor(pricing.Request{Style: "PC61", Color: "White"})
	b := KeyFor(pricing.Request{Style: "pc61", Color: "white"})

	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestInventoryKey(t *testing.T) {
	if got := InventoryKey("PC61"); got != "inventory_pc61" {
		t.Errorf("InventoryKey() = %q", got)
	}
}
