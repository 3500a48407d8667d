package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingQuery names one getPricing lookup. Exactly one identifier family
// is sent populated; the other family's fields go out as empty elements.
type PricingQuery struct {
	Style string
	Color string
	Size  string

	InventoryKey string
	SizeIndex    string

	// ByInventoryKey selects the inventoryKey/sizeIndex family.
	ByInventoryKey bool
}

// PriceItem is one typed row of a getPricing reply.
type PriceItem struct {
	Style string
	Color string
	Size  string

	PiecePrice decimal.NullDecimal
	DozenPrice decimal.NullDecimal
	CasePrice  decimal.NullDecimal
	SalePrice  decimal.NullDecimal
	MyPrice    decimal.NullDecimal

	SaleStartDate *time.Time
	SaleEndDate   *time.Time

	// CaseSize is zero when the service did not supply one.
	CaseSize int

	InventoryKey string
	SizeIndex    string
}

// PricingResponse is the translated getPricing reply.
type PricingResponse struct {
	Message string
	Items   []PriceItem
}

// WarehouseQuantity is the available quantity at one warehouse.
type WarehouseQuantity struct {
	WarehouseID string
	Quantity    int
}

// InventoryItem is the stock of one color/size variation.
type InventoryItem struct {
	Color     string
	Size      string
	Locations []WarehouseQuantity
}

// InventoryResponse is the translated getInventoryLevels reply.
type InventoryResponse struct {
	Style string
	Items []InventoryItem
}

// Credentials is the account triple sent with every call.
type Credentials struct {
	CustomerNumber string
	Username       string
	Password       string
}

// Complete reports whether all three values are present.
func (c Credentials) Complete() bool {
	return c.CustomerNumber != "" && c.Username != "" && c.Password != ""
}
