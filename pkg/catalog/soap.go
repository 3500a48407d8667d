package catalog

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	soapEnvelopeNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	pricingServiceNS   = "http://impl.webservice.integration.sanmar.com/"
	inventoryServiceNS = "http://www.promostandards.org/WSDL/Inventory/1.0.0/"
	inventoryWSVersion = "1.0.0"
)

// Outbound envelopes. Element names carry their prefix literally so the
// marshalled document matches what the service's schema expects.

type pricingRequestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	ImplNS  string   `xml:"xmlns:impl,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		GetPricing pricingCall `xml:"impl:getPricing"`
	} `xml:"soapenv:Body"`
}

type pricingCall struct {
	Arg0 pricingArgs `xml:"arg0"`
	Arg1 accountArgs `xml:"arg1"`
}

// pricingArgs has no omitempty: every field is always present on the wire.
type pricingArgs struct {
	Style        string `xml:"style"`
	Color        string `xml:"color"`
	Size         string `xml:"size"`
	CasePrice    string `xml:"casePrice"`
	DozenPrice   string `xml:"dozenPrice"`
	PiecePrice   string `xml:"piecePrice"`
	SalePrice    string `xml:"salePrice"`
	MyPrice      string `xml:"myPrice"`
	InventoryKey string `xml:"inventoryKey"`
	SizeIndex    string `xml:"sizeIndex"`
}

type accountArgs struct {
	CustomerNumber string `xml:"sanMarCustomerNumber"`
	Username       string `xml:"sanMarUserName"`
	Password       string `xml:"sanMarUserPassword"`
}

type inventoryRequestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	InvNS   string   `xml:"xmlns:ns,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Request inventoryCall `xml:"ns:getInventoryLevels"`
	} `xml:"soapenv:Body"`
}

type inventoryCall struct {
	WSVersion string `xml:"wsVersion"`
	ID        struct {
		Username string `xml:"username"`
		Password string `xml:"password"`
		CustID   string `xml:"custID"`
	} `xml:"id"`
	ProductID string `xml:"productId"`
}

// Inbound envelopes, matched on local names only.

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type pricingResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault  *soapFault     `xml:"Fault"`
		Return *pricingReturn `xml:"getPricingResponse>return"`
	} `xml:"Body"`
}

type pricingReturn struct {
	ErrorOccurred *string           `xml:"errorOccurred"`
	// ErrorOccured is the spelling some service releases send.
	ErrorOccured  *string           `xml:"errorOccured"`
	Message       *string           `xml:"message"`
	ListResponse  []pricingWireItem `xml:"listResponse"`
}

type pricingWireItem struct {
	Style         *string `xml:"style"`
	Color         *string `xml:"color"`
	Size          *string `xml:"size"`
	CasePrice     *string `xml:"casePrice"`
	DozenPrice    *string `xml:"dozenPrice"`
	PiecePrice    *string `xml:"piecePrice"`
	SalePrice     *string `xml:"salePrice"`
	MyPrice       *string `xml:"myPrice"`
	SaleStartDate *string `xml:"saleStartDate"`
	SaleEndDate   *string `xml:"saleEndDate"`
	CaseSize      *string `xml:"caseSize"`
	InventoryKey  *string `xml:"inventoryKey"`
	SizeIndex     *string `xml:"sizeIndex"`
}

type inventoryResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault  *soapFault       `xml:"Fault"`
		Return *inventoryReturn `xml:"getInventoryLevelsResponse"`
	} `xml:"Body"`
}

type inventoryReturn struct {
	ErrorMessage *struct {
		Code        *string `xml:"code"`
		Description *string `xml:"description"`
	} `xml:"ErrorMessage"`
	Inventory []inventoryWireItem `xml:"Inventory"`
}

type inventoryWireItem struct {
	ProductVariationID *struct {
		Color *string `xml:"Color"`
		Size  *string `xml:"Size"`
	} `xml:"ProductVariationID"`
	LocationInventoryArray *struct {
		LocationInventory []struct {
			LocationID        *string `xml:"LocationID"`
			QuantityAvailable *string `xml:"QuantityAvailable"`
		} `xml:"LocationInventory"`
	} `xml:"LocationInventoryArray"`
}

func buildPricingRequest(q PricingQuery, creds Credentials) ([]byte, error) {
	env := pricingRequestEnvelope{SoapNS: soapEnvelopeNS, ImplNS: pricingServiceNS}
	args := &env.Body.GetPricing.Arg0
	if q.ByInventoryKey {
		args.InventoryKey = q.InventoryKey
		args.SizeIndex = q.SizeIndex
	} else {
		args.Style = q.Style
		args.Color = q.Color
		args.Size = q.Size
	}
	env.Body.GetPricing.Arg1 = accountArgs{
		CustomerNumber: creds.CustomerNumber,
		Username:       creds.Username,
		Password:       creds.Password,
	}
	return marshalEnvelope(env)
}

func buildInventoryRequest(style string, creds Credentials) ([]byte, error) {
	env := inventoryRequestEnvelope{SoapNS: soapEnvelopeNS, InvNS: inventoryServiceNS}
	call := &env.Body.Request
	call.WSVersion = inventoryWSVersion
	call.ID.Username = creds.Username
	call.ID.Password = creds.Password
	call.ID.CustID = creds.CustomerNumber
	call.ProductID = style
	return marshalEnvelope(env)
}

func marshalEnvelope(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// faultOf extracts a SOAP Fault from body, if the body is one.
func faultOf(body []byte) *soapFault {
	var env struct {
		Body struct {
			Fault *soapFault `xml:"Fault"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env.Body.Fault
}

// translatePricing is the single place where the loosely typed reply is
// turned into PriceItem values.
func translatePricing(body []byte) (*PricingResponse, error) {
	var env pricingResponseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &Error{Kind: KindParse, Op: opPricing, Message: "decode envelope", Err: err}
	}
	if f := env.Body.Fault; f != nil {
		return nil, &Error{Kind: KindRemote, Op: opPricing, Message: faultMessage(f)}
	}
	ret := env.Body.Return
	if ret == nil {
		return nil, &Error{Kind: KindParse, Op: opPricing, Message: "response has no getPricingResponse/return element"}
	}

	message := str(ret.Message)
	if flagSet(ret.ErrorOccurred) || flagSet(ret.ErrorOccured) {
		if message == "" {
			message = "Unknown error"
		}
		return nil, &Error{Kind: KindRemote, Op: opPricing, Message: message}
	}

	resp := &PricingResponse{Message: message, Items: make([]PriceItem, 0, len(ret.ListResponse))}
	for i, w := range ret.ListResponse {
		item, err := translatePriceItem(w)
		if err != nil {
			return nil, &Error{Kind: KindParse, Op: opPricing, Message: fmt.Sprintf("listResponse[%d]", i), Err: err}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func translatePriceItem(w pricingWireItem) (PriceItem, error) {
	item := PriceItem{
		Style:        str(w.Style),
		Color:        str(w.Color),
		Size:         str(w.Size),
		InventoryKey: str(w.InventoryKey),
		SizeIndex:    str(w.SizeIndex),
	}

	prices := []struct {
		name string
		raw  *string
		dst  *decimal.NullDecimal
	}{
		{"piecePrice", w.PiecePrice, &item.PiecePrice},
		{"dozenPrice", w.DozenPrice, &item.DozenPrice},
		{"casePrice", w.CasePrice, &item.CasePrice},
		{"salePrice", w.SalePrice, &item.SalePrice},
		{"myPrice", w.MyPrice, &item.MyPrice},
	}
	for _, p := range prices {
		d, err := parseDecimal(p.raw)
		if err != nil {
			return PriceItem{}, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = d
	}

	var err error
	if item.SaleStartDate, err = parseDate(w.SaleStartDate); err != nil {
		return PriceItem{}, fmt.Errorf("saleStartDate: %w", err)
	}
	if item.SaleEndDate, err = parseDate(w.SaleEndDate); err != nil {
		return PriceItem{}, fmt.Errorf("saleEndDate: %w", err)
	}

	if raw := strings.TrimSpace(str(w.CaseSize)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PriceItem{}, fmt.Errorf("caseSize: %w", err)
		}
		item.CaseSize = n
	}
	return item, nil
}

func translateInventory(style string, body []byte) (*InventoryResponse, error) {
	var env inventoryResponseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &Error{Kind: KindParse, Op: opInventory, Message: "decode envelope", Err: err}
	}
	if f := env.Body.Fault; f != nil {
		return nil, &Error{Kind: KindRemote, Op: opInventory, Message: faultMessage(f)}
	}
	ret := env.Body.Return
	if ret == nil {
		return nil, &Error{Kind: KindParse, Op: opInventory, Message: "response has no getInventoryLevelsResponse element"}
	}
	if em := ret.ErrorMessage; em != nil && (str(em.Code) != "" || str(em.Description) != "") {
		return nil, &Error{Kind: KindRemote, Op: opInventory, Message: strings.TrimSpace(str(em.Code) + " " + str(em.Description))}
	}

	resp := &InventoryResponse{Style: style, Items: make([]InventoryItem, 0, len(ret.Inventory))}
	for i, w := range ret.Inventory {
		if w.ProductVariationID == nil {
			return nil, &Error{Kind: KindParse, Op: opInventory, Message: fmt.Sprintf("Inventory[%d] has no ProductVariationID", i)}
		}
		item := InventoryItem{
			Color: str(w.ProductVariationID.Color),
			Size:  str(w.ProductVariationID.Size),
		}
		if w.LocationInventoryArray != nil {
			for _, loc := range w.LocationInventoryArray.LocationInventory {
				qty := 0
				if raw := strings.TrimSpace(str(loc.QuantityAvailable)); raw != "" {
					n, err := strconv.Atoi(raw)
					if err != nil {
						return nil, &Error{Kind: KindParse, Op: opInventory, Message: fmt.Sprintf("Inventory[%d] QuantityAvailable", i), Err: err}
					}
					qty = n
				}
				item.Locations = append(item.Locations, WarehouseQuantity{
					WarehouseID: str(loc.LocationID),
					Quantity:    qty,
				})
			}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func faultMessage(f *soapFault) string {
	if f.String != "" {
		return "SOAP fault: " + f.String
	}
	return "SOAP fault: " + f.Code
}

func flagSet(s *string) bool {
	return strings.EqualFold(strings.TrimSpace(str(s)), "true")
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func parseDecimal(raw *string) (decimal.NullDecimal, error) {
	s := str(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// parseDate accepts xsd:date and xsd:dateTime values.
func parseDate(raw *string) (*time.Time, error) {
	s := str(raw)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}
