package pricing

import "github.com/shopspring/decimal"

// defaultSizes are the sizes of the fallback structure.
var defaultSizes = []string{"S", "M", "L", "XL", "2XL", "3XL"}

// DefaultResult returns a well-formed result with zero prices, served when
// no real or cached pricing is available.
func DefaultResult(style, color string) *Result {
	r := NewResult(style, color)
	r.Source = SourceDefault
	for _, size := range defaultSizes {
		r.Add(Record{
			Size:          size,
			OriginalPrice: decimal.Zero,
			SalePrice:     decimal.Zero,
			ProgramPrice:  decimal.Zero,
			CaseSize:      DefaultCaseSizes.Lookup(style, size),
		})
	}
	return r
}
