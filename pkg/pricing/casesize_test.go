package pricing

import "testing"

func TestCaseSizeTable_Lookup(t *testing.T) {
	tests := []struct {
		style, size string
		want        int
	}{
		{"PC61", "M", 72},
		{"pc61", "xl", 72},
		{"PC61LS", "S", 72},
		{"PC61", "2XL", 36},
		{"PC61", "OSFA", 36},
		{"J790", "2XL", 24},
		{"J790", "3XL", 12},
		{"C112", "OSFA", 144},
		{"CP90", "OSFA", 144},
		{"CP90", "One Size", 144},
		{"G500", "M", 24},
	}

	for _, tt := range tests {
		t.Run(tt.style+"/"+tt.size, func(t *testing.T) {
			if got := DefaultCaseSizes.Lookup(tt.style, tt.size); got != tt.want {
				t.Errorf("Lookup(%q, %q) = %d, want %d", tt.style, tt.size, got, tt.want)
			}
		})
	}
}
