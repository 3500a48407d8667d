package pricing

import (
	"strings"

	"github.com/Sternrassler/apparel-pricing/pkg/catalog"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Normalizer converts catalog pricing replies into Results. It holds no
// state between calls.
type Normalizer struct {
	caseSizes CaseSizeTable
	logger    zerolog.Logger
}

// NewNormalizer creates a normalizer. A table without rules falls back to
// DefaultCaseSizes.
func NewNormalizer(caseSizes CaseSizeTable, logger zerolog.Logger) *Normalizer {
	if len(caseSizes.Rules) == 0 && caseSizes.Default == 0 {
		caseSizes = DefaultCaseSizes
	}
	return &Normalizer{caseSizes: caseSizes, logger: logger}
}

// colorGroup accumulates the results of one color in reply order.
type colorGroup struct {
	order []string
	byKey map[string]*Result
}

func (g *colorGroup) get(style, color string) *Result {
	key := strings.ToLower(color)
	if r, ok := g.byKey[key]; ok {
		return r
	}
	r := NewResult(style, color)
	g.byKey[key] = r
	g.order = append(g.order, key)
	return r
}

// Normalize builds the result of a reply for style. When requestedColor is
// set and the reply lacks it, the top-level records stay empty and
// UnresolvedColor names the color; no other color's prices are used.
func (n *Normalizer) Normalize(style string, resp *catalog.PricingResponse, requestedColor string) (*Result, error) {
	requestedColor = strings.TrimSpace(requestedColor)
	if style == "" && resp != nil {
		for _, item := range resp.Items {
			if item.Style != "" {
				style = item.Style
				break
			}
		}
	}

	if resp == nil {
		return nil, ErrNoPricingData
	}
	top := NewResult(style, requestedColor)
	top.Source = SourceRemote

	groups := colorGroup{byKey: make(map[string]*Result)}
	matched := false
	skipped := 0

	for _, item := range resp.Items {
		rec, sale, ok := n.record(style, item)
		if !ok {
			skipped++
			continue
		}

		if item.Color != "" {
			cr := groups.get(style, item.Color)
			cr.Source = SourceRemote
			if cr.Add(rec) {
				applyMeta(&cr.Meta, item, sale)
			}
		}

		if requestedColor == "" || item.Color == "" || strings.EqualFold(item.Color, requestedColor) {
			matched = true
			if top.Add(rec) {
				applyMeta(&top.Meta, item, sale)
			}
		}
	}

	if skipped > 0 {
		n.logger.Warn().
			Str("style", style).
			Int("skipped", skipped).
			Msg("Catalog items without piece or case price skipped")
	}

	if len(groups.order) == 0 && len(top.Records) == 0 {
		return nil, ErrNoPricingData
	}

	if requestedColor != "" && !matched {
		top.UnresolvedColor = requestedColor
		n.logger.Warn().
			Str("style", style).
			Str("color", requestedColor).
			Int("colors", len(groups.order)).
			Msg("Requested color absent from catalog reply")
	}

	if top.Color == "" && len(groups.order) == 1 {
		top.Color = groups.byKey[groups.order[0]].Color
	}

	if len(groups.order) > 1 || top.UnresolvedColor != "" {
		top.ColorPricing = make(map[string]*Result, len(groups.order))
		for _, key := range groups.order {
			cr := groups.byKey[key]
			top.ColorPricing[cr.Color] = cr
		}
	}

	return top, nil
}

// record resolves the prices of one item. ok is false when the item has
// neither a piece nor a case price. sale reports whether the sale price is
// an actual discount.
func (n *Normalizer) record(style string, item catalog.PriceItem) (rec Record, sale bool, ok bool) {
	size := strings.TrimSpace(item.Size)
	if size == "" {
		size = UnknownSize
	}

	var original decimal.Decimal
	switch {
	case item.PiecePrice.Valid:
		original = item.PiecePrice.Decimal
	case item.CasePrice.Valid:
		original = item.CasePrice.Decimal
	default:
		return Record{}, false, false
	}

	salePrice := original
	if item.SalePrice.Valid {
		salePrice = item.SalePrice.Decimal
		sale = salePrice.IsPositive() && salePrice.LessThan(original)
	}

	program := salePrice
	if item.MyPrice.Valid {
		program = item.MyPrice.Decimal
	}

	caseSize := item.CaseSize
	if caseSize <= 0 {
		caseSize = n.caseSizes.Lookup(style, size)
	}

	return Record{
		Size:          size,
		OriginalPrice: original,
		SalePrice:     salePrice,
		ProgramPrice:  program,
		CaseSize:      caseSize,
		PiecePrice:    item.PiecePrice,
		DozenPrice:    item.DozenPrice,
		CasePrice:     item.CasePrice,
	}, sale, true
}

// applyMeta records sale detection and keeps the first sale window seen.
func applyMeta(m *Meta, item catalog.PriceItem, sale bool) {
	if sale {
		m.HasSale = true
	}
	if m.SaleStartDate == nil && item.SaleStartDate != nil {
		m.SaleStartDate = NewDate(*item.SaleStartDate)
	}
	if m.SaleEndDate == nil && item.SaleEndDate != nil {
		m.SaleEndDate = NewDate(*item.SaleEndDate)
	}
}
