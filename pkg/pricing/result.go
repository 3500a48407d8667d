package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source tells where a result came from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceCache   Source = "cache"
	SourceStale   Source = "stale"
	SourceDefault Source = "default"
)

// Record is the resolved pricing of one size. The ordering
// program <= sale <= original is expected but never enforced.
type Record struct {
	Size          string
	OriginalPrice decimal.Decimal
	SalePrice     decimal.Decimal
	ProgramPrice  decimal.Decimal
	CaseSize      int

	// Raw catalog values kept for audit.
	PiecePrice decimal.NullDecimal
	DozenPrice decimal.NullDecimal
	CasePrice  decimal.NullDecimal
}

// Date is a calendar date rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) *Date {
	y, m, d := t.Date()
	return &Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Meta carries sale information of a result.
type Meta struct {
	HasSale       bool  `json:"hasSale"`
	SaleStartDate *Date `json:"saleStartDate"`
	SaleEndDate   *Date `json:"saleEndDate"`
}

// Result is the pricing of one style and color, keyed by size.
type Result struct {
	Style string
	Color string

	// Sizes is the display order of Records' keys.
	Sizes   []string
	Records map[string]Record

	Meta Meta

	// ColorPricing holds one result per color of a multi-color reply.
	ColorPricing map[string]*Result

	// UnresolvedColor is the requested color when the reply did not contain it.
	UnresolvedColor string

	Source Source
}

// NewResult returns an empty result for style and color.
func NewResult(style, color string) *Result {
	return &Result{
		Style:   style,
		Color:   color,
		Records: make(map[string]Record),
	}
}

// Add stores rec unless its size is already present. It reports whether
// the record was stored.
func (r *Result) Add(rec Record) bool {
	if r.Records == nil {
		r.Records = make(map[string]Record)
	}
	if _, ok := r.Records[rec.Size]; ok {
		return false
	}
	r.Records[rec.Size] = rec
	r.Sizes = append(r.Sizes, rec.Size)
	return true
}

// Record returns the record of size.
func (r *Result) Record(size string) (Record, bool) {
	rec, ok := r.Records[size]
	return rec, ok
}

// Empty reports whether the result holds no records, including per-color ones.
func (r *Result) Empty() bool {
	if len(r.Records) > 0 {
		return false
	}
	for _, cr := range r.ColorPricing {
		if !cr.Empty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Style:           r.Style,
		Color:           r.Color,
		Sizes:           append([]string(nil), r.Sizes...),
		Records:         make(map[string]Record, len(r.Records)),
		Meta:            r.Meta,
		UnresolvedColor: r.UnresolvedColor,
		Source:          r.Source,
	}
	if r.Meta.SaleStartDate != nil {
		d := *r.Meta.SaleStartDate
		out.Meta.SaleStartDate = &d
	}
	if r.Meta.SaleEndDate != nil {
		d := *r.Meta.SaleEndDate
		out.Meta.SaleEndDate = &d
	}
	for k, v := range r.Records {
		out.Records[k] = v
	}
	if r.ColorPricing != nil {
		out.ColorPricing = make(map[string]*Result, len(r.ColorPricing))
		for c, cr := range r.ColorPricing {
			out.ColorPricing[c] = cr.Clone()
		}
	}
	return out
}

// WithSource returns a deep copy of r whose Source, and that of every
// per-color result, is s.
func (r *Result) WithSource(s Source) *Result {
	out := r.Clone()
	if out != nil {
		out.setSource(s)
	}
	return out
}

func (r *Result) setSource(s Source) {
	r.Source = s
	for _, cr := range r.ColorPricing {
		cr.setSource(s)
	}
}

// resultJSON is the wire shape. Per-size maps are written as JSON objects
// whose keys follow Sizes.
type resultJSON struct {
	Style           string             `json:"style"`
	Color           string             `json:"color,omitempty"`
	Sizes           []string           `json:"sizes"`
	OriginalPrice   orderedJSON        `json:"originalPrice"`
	SalePrice       orderedJSON        `json:"salePrice"`
	ProgramPrice    orderedJSON        `json:"programPrice"`
	CaseSize        orderedJSON        `json:"caseSize"`
	PiecePrice      orderedJSON        `json:"piecePrice"`
	DozenPrice      orderedJSON        `json:"dozenPrice"`
	CasePrice       orderedJSON        `json:"casePrice"`
	Meta            Meta               `json:"meta"`
	ColorPricing    map[string]*Result `json:"colorPricing,omitempty"`
	UnresolvedColor string             `json:"unresolvedColor,omitempty"`
	Source          Source             `json:"source,omitempty"`
}

type orderedJSON struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range o.keys {
		v, ok := o.values[k]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func newOrdered(keys []string) orderedJSON {
	return orderedJSON{keys: keys, values: make(map[string]json.RawMessage, len(keys))}
}

// MarshalJSON implements json.Marshaler. Prices are JSON numbers.
func (r *Result) MarshalJSON() ([]byte, error) {
	sizes := r.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	w := resultJSON{
		Style:           r.Style,
		Color:           r.Color,
		Sizes:           sizes,
		OriginalPrice:   newOrdered(sizes),
		SalePrice:       newOrdered(sizes),
		ProgramPrice:    newOrdered(sizes),
		CaseSize:        newOrdered(sizes),
		PiecePrice:      newOrdered(sizes),
		DozenPrice:      newOrdered(sizes),
		CasePrice:       newOrdered(sizes),
		Meta:            r.Meta,
		ColorPricing:    r.ColorPricing,
		UnresolvedColor: r.UnresolvedColor,
		Source:          r.Source,
	}
	for _, size := range sizes {
		rec, ok := r.Records[size]
		if !ok {
			continue
		}
		w.OriginalPrice.values[size] = json.RawMessage(rec.OriginalPrice.String())
		w.SalePrice.values[size] = json.RawMessage(rec.SalePrice.String())
		w.ProgramPrice.values[size] = json.RawMessage(rec.ProgramPrice.String())
		w.CaseSize.values[size] = json.RawMessage(fmt.Sprintf("%d", rec.CaseSize))
		if rec.PiecePrice.Valid {
			w.PiecePrice.values[size] = json.RawMessage(rec.PiecePrice.Decimal.String())
		}
		if rec.DozenPrice.Valid {
			w.DozenPrice.values[size] = json.RawMessage(rec.DozenPrice.Decimal.String())
		}
		if rec.CasePrice.Valid {
			w.CasePrice.values[size] = json.RawMessage(rec.CasePrice.Decimal.String())
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(b []byte) error {
	var w struct {
		Style           string                     `json:"style"`
		Color           string                     `json:"color"`
		Sizes           []string                   `json:"sizes"`
		OriginalPrice   map[string]decimal.Decimal `json:"originalPrice"`
		SalePrice       map[string]decimal.Decimal `json:"salePrice"`
		ProgramPrice    map[string]decimal.Decimal `json:"programPrice"`
		CaseSize        map[string]int             `json:"caseSize"`
		PiecePrice      map[string]decimal.Decimal `json:"piecePrice"`
		DozenPrice      map[string]decimal.Decimal `json:"dozenPrice"`
		CasePrice       map[string]decimal.Decimal `json:"casePrice"`
		Meta            Meta                       `json:"meta"`
		ColorPricing    map[string]*Result         `json:"colorPricing"`
		UnresolvedColor string                     `json:"unresolvedColor"`
		Source          Source                     `json:"source"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*r = Result{
		Style:           w.Style,
		Color:           w.Color,
		Records:         make(map[string]Record, len(w.Sizes)),
		Meta:            w.Meta,
		ColorPricing:    w.ColorPricing,
		UnresolvedColor: w.UnresolvedColor,
		Source:          w.Source,
	}
	for _, size := range w.Sizes {
		orig, ok := w.OriginalPrice[size]
		if !ok {
			return fmt.Errorf("size %q has no originalPrice", size)
		}
		rec := Record{
			Size:          size,
			OriginalPrice: orig,
			SalePrice:     orig,
			ProgramPrice:  orig,
			CaseSize:      w.CaseSize[size],
		}
		if v, ok := w.SalePrice[size]; ok {
			rec.SalePrice = v
		}
		if v, ok := w.ProgramPrice[size]; ok {
			rec.ProgramPrice = v
		}
		if v, ok := w.PiecePrice[size]; ok {
			rec.PiecePrice = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		if v, ok := w.DozenPrice[size]; ok {
			rec.DozenPrice = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		if v, ok := w.CasePrice[size]; ok {
			rec.CasePrice = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		r.Add(rec)
	}
	if r.Sizes == nil {
		r.Sizes = []string{}
	}
	return nil
}
