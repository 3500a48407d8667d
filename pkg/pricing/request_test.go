package pricing

import (
	"errors"
	"testing"
)

func TestRequest_ValidateAndFamily(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		wantErr    bool
		wantFamily IdentifierFamily
	}{
		{"style only", Request{Style: "PC61"}, false, FamilyStyle},
		{"style color size", Request{Style: "PC61", Color: "White", Size: "M"}, false, FamilyStyle},
		{"key family", Request{InventoryKey: "1234", SizeIndex: "3"}, false, FamilyInventoryKey},
		{"style wins over key", Request{Style: "PC61", InventoryKey: "1234", SizeIndex: "3"}, false, FamilyStyle},
		{"key without index", Request{InventoryKey: "1234"}, true, FamilyStyle},
		{"blank style", Request{Style: "   "}, true, FamilyStyle},
		{"empty", Request{}, true, FamilyStyle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if got := tt.req.Family(); got != tt.wantFamily {
				t.Errorf("Family() = %v, want %v", got, tt.wantFamily)
			}
		})
	}
}
