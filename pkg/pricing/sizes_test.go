package pricing

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSortKey(t *testing.T) {
	tests := []struct {
		size string
		want int
	}{
		{"XXS", 10},
		{"XS", 20},
		{"s", 30},
		{" M ", 40},
		{"L", 50},
		{"XL", 60},
		{"2XL", 70},
		{"XXL", 70},
		{"3XL", 80},
		{"XXXL", 80},
		{"4XL", 90},
		{"XXXXL", 90},
		{"5XL", 100},
		{"6XL", 110},
		{"XXXXXXL", 110},
		{"7XL", 130},
		{"OSFA", 500},
		{"LT", UnmatchedSortKey},
		{"10", UnmatchedSortKey},
		{"", UnmatchedSortKey},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			if got := SortKey(tt.size); got != tt.want {
				t.Errorf("SortKey(%q) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestSortKey_VocabularyIsMonotonic(t *testing.T) {
	vocabulary := []string{"XXS", "XS", "S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL", "6XL", "OSFA"}

	prev := 0
	for _, size := range vocabulary {
		key := SortKey(size)
		if key < prev {
			t.Errorf("SortKey(%q) = %d is below previous key %d", size, key, prev)
		}
		if key >= UnmatchedSortKey {
			t.Errorf("SortKey(%q) = %d must sort before unmatched sizes", size, key)
		}
		prev = key
	}
}

func TestSortSizes_UnmatchedStable(t *testing.T) {
	sizes := []string{"LT", "M", "XLT", "S", "2XLT"}
	SortSizes(sizes)

	want := []string{"S", "M", "LT", "XLT", "2XLT"}
	if !reflect.DeepEqual(sizes, want) {
		t.Errorf("SortSizes = %v, want %v", sizes, want)
	}
}

func TestReorder(t *testing.T) {
	// Sizes arrive out of order; each record carries a distinct price so a
	// mis-keyed map would show.
	in := NewResult("PC61", "White")
	for i, size := range []string{"XL", "S", "2XL", "M", "L"} {
		p := decimal.NewFromInt(int64(i + 1))
		in.Add(Record{
			Size:          size,
			OriginalPrice: p,
			SalePrice:     p.Sub(decimal.NewFromFloat(0.5)),
			ProgramPrice:  p.Sub(decimal.NewFromInt(1)),
			CaseSize:      10 * (i + 1),
		})
	}

	out := Reorder(in)

	wantSizes := []string{"S", "M", "L", "XL", "2XL"}
	if !reflect.DeepEqual(out.Sizes, wantSizes) {
		t.Fatalf("Sizes = %v, want %v", out.Sizes, wantSizes)
	}
	for _, size := range wantSizes {
		if !reflect.DeepEqual(out.Records[size], in.Records[size]) {
			t.Errorf("record for %s changed: %+v vs %+v", size, out.Records[size], in.Records[size])
		}
	}
	if out.Records["XL"].CaseSize != 10 || out.Records["S"].CaseSize != 20 {
		t.Error("case sizes must stay attached to their size")
	}

	// Input is untouched.
	if !reflect.DeepEqual(in.Sizes, []string{"XL", "S", "2XL", "M", "L"}) {
		t.Errorf("input sizes mutated: %v", in.Sizes)
	}
}

func TestReorder_ColorPricing(t *testing.T) {
	in := NewResult("PC61", "")
	black := NewResult("PC61", "Black")
	black.Add(Record{Size: "L", OriginalPrice: decimal.NewFromInt(3)})
	black.Add(Record{Size: "XS", OriginalPrice: decimal.NewFromInt(2)})
	in.ColorPricing = map[string]*Result{"Black": black}

	out := Reorder(in)

	if got := out.ColorPricing["Black"].Sizes; !reflect.DeepEqual(got, []string{"XS", "L"}) {
		t.Errorf("color sizes = %v, want [XS L]", got)
	}
	if out.ColorPricing["Black"] == black {
		t.Error("Reorder must deep copy per-color results")
	}
}
