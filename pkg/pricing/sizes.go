package pricing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// UnknownSize buckets catalog items that carry no size.
const UnknownSize = "Unknown"

// UnmatchedSortKey is the key of any size outside the vocabulary.
const UnmatchedSortKey = 999

var sizeOrder = map[string]int{
	"XXS":     10,
	"XS":      20,
	"S":       30,
	"M":       40,
	"L":       50,
	"XL":      60,
	"2XL":     70,
	"XXL":     70,
	"3XL":     80,
	"XXXL":    80,
	"4XL":     90,
	"XXXXL":   90,
	"5XL":     100,
	"XXXXXL":  100,
	"6XL":     110,
	"XXXXXXL": 110,
	"OSFA":    500,
}

var numericXL = regexp.MustCompile(`^(\d)XL$`)

// SortKey returns the ordering key of size. Lookup ignores case and
// surrounding whitespace.
func SortKey(size string) int {
	s := strings.ToUpper(strings.TrimSpace(size))
	if key, ok := sizeOrder[s]; ok {
		return key
	}
	if m := numericXL.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		return 60 + d*10
	}
	return UnmatchedSortKey
}

// SortSizes orders sizes in place. Sizes with equal keys keep their
// relative input order.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		return SortKey(sizes[i]) < SortKey(sizes[j])
	})
}

// Reorder returns a deep copy of r with every size list, including those
// of the per-color results, in vocabulary order. Records stay keyed by size
// so every per-size value moves together.
func Reorder(r *Result) *Result {
	if r == nil {
		return nil
	}
	out := r.Clone()
	reorderInPlace(out)
	return out
}

func reorderInPlace(r *Result) {
	SortSizes(r.Sizes)
	for _, cr := range r.ColorPricing {
		reorderInPlace(cr)
	}
}
