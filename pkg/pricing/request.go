// Package pricing turns catalog replies into size-indexed pricing results.
//
// A Result holds one record per size together with the ordered list of
// sizes; JSON output renders the per-size maps in that order. The package
// also owns the size ordering vocabulary, the case-size table, the default
// pricing structure and the isolated price override table.
package pricing

import (
	"errors"
	"strings"
)

// Errors returned by the package.
var (
	// ErrInvalidRequest is returned when neither identifier family is complete.
	ErrInvalidRequest = errors.New("style or inventoryKey and sizeIndex required")

	// ErrNoPricingData is returned when no item of a reply yields a price.
	ErrNoPricingData = errors.New("no pricing data found")
)

// IdentifierFamily names the set of identifiers used to address a SKU.
type IdentifierFamily int

const (
	// FamilyStyle addresses a SKU by style, color and size.
	FamilyStyle IdentifierFamily = iota
	// FamilyInventoryKey addresses a SKU by inventoryKey and sizeIndex.
	FamilyInventoryKey
)

func (f IdentifierFamily) String() string {
	if f == FamilyInventoryKey {
		return "inventory_key"
	}
	return "style"
}

// Request identifies one pricing lookup.
type Request struct {
	Style        string `json:"style,omitempty"`
	Color        string `json:"color,omitempty"`
	Size         string `json:"size,omitempty"`
	InventoryKey string `json:"inventoryKey,omitempty"`
	SizeIndex    string `json:"sizeIndex,omitempty"`
}

// Normalized returns a copy with surrounding whitespace removed.
func (r Request) Normalized() Request {
	return Request{
		Style:        strings.TrimSpace(r.Style),
		Color:        strings.TrimSpace(r.Color),
		Size:         strings.TrimSpace(r.Size),
		InventoryKey: strings.TrimSpace(r.InventoryKey),
		SizeIndex:    strings.TrimSpace(r.SizeIndex),
	}
}

// Validate checks that at least one identifier family is complete.
func (r Request) Validate() error {
	n := r.Normalized()
	if n.Style != "" {
		return nil
	}
	if n.InventoryKey != "" && n.SizeIndex != "" {
		return nil
	}
	return ErrInvalidRequest
}

// Family picks the identifier family sent to the catalog. The key family is
// only used when both key fields are present and style is not.
func (r Request) Family() IdentifierFamily {
	n := r.Normalized()
	if n.Style == "" && n.InventoryKey != "" && n.SizeIndex != "" {
		return FamilyInventoryKey
	}
	return FamilyStyle
}
