package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Override pins the prices of a style, color and optional size. Unset
// prices keep the catalog value.
type Override struct {
	Style         string              `json:"style"`
	Color         string              `json:"color"`
	Size          string              `json:"size,omitempty"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	ProgramPrice  decimal.NullDecimal `json:"programPrice"`
	Note          string              `json:"note,omitempty"`
}

// Overrides is a lookup table of manual price corrections. It is applied
// after normalization and is empty unless configured.
type Overrides struct {
	entries []Override
}

// NewOverrides builds a table from entries.
func NewOverrides(entries []Override) (*Overrides, error) {
	for i, e := range entries {
		if e.Style == "" || e.Color == "" {
			return nil, fmt.Errorf("override %d: style and color are required", i)
		}
	}
	return &Overrides{entries: entries}, nil
}

// LoadOverrides reads a JSON array of Override from path.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var entries []Override
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode overrides %s: %w", path, err)
	}
	return NewOverrides(entries)
}

// Len returns the number of entries.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

// Apply returns a copy of r with matching entries applied, and the number
// of records changed. r itself is never modified.
func (o *Overrides) Apply(r *Result) (*Result, int) {
	if o.Len() == 0 || r == nil {
		return r, 0
	}
	out := r.Clone()
	changed := o.applyTo(out, out.Color)
	for color, cr := range out.ColorPricing {
		changed += o.applyTo(cr, color)
	}
	return out, changed
}

func (o *Overrides) applyTo(r *Result, color string) int {
	changed := 0
	for _, e := range o.entries {
		if !strings.EqualFold(e.Style, r.Style) || !strings.EqualFold(e.Color, color) {
			continue
		}
		for _, size := range r.Sizes {
			if e.Size != "" && !strings.EqualFold(e.Size, size) {
				continue
			}
			rec := r.Records[size]
			if e.OriginalPrice.Valid {
				rec.OriginalPrice = e.OriginalPrice.Decimal
			}
			if e.SalePrice.Valid {
				rec.SalePrice = e.SalePrice.Decimal
			}
			if e.ProgramPrice.Valid {
				rec.ProgramPrice = e.ProgramPrice.Decimal
			}
			r.Records[size] = rec
			changed++
		}
	}
	return changed
}
