package catalog

import "testing"

func pricingEnvelope(ret string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		`<ns2:getPricingResponse xmlns:ns2="http://impl.webservice.integration.sanmar.com/"><return>` +
		ret + `</return></ns2:getPricingResponse></soap:Body></soap:Envelope>`)
}

func TestTranslatePricing_ErrorFlag(t *testing.T) {
	tests := []struct {
		name        string
		ret         string
		wantErr     bool
		wantMessage string
	}{
		{
			name:        "errorOccurred set",
			ret:         `<errorOccurred>true</errorOccurred><message>Invalid style</message>`,
			wantErr:     true,
			wantMessage: "Invalid style",
		},
		{
			name:        "errorOccured spelling set",
			ret:         `<errorOccured>true</errorOccured><message>Invalid style</message>`,
			wantErr:     true,
			wantMessage: "Invalid style",
		},
		{
			name:        "errorOccured set without message",
			ret:         `<errorOccured>TRUE</errorOccured>`,
			wantErr:     true,
			wantMessage: "Unknown error",
		},
		{
			name: "both flags false",
			ret:  `<errorOccurred>false</errorOccurred><errorOccured>false</errorOccured><message>Success</message>`,
		},
		{
			name: "no flag",
			ret:  `<message>Success</message>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := translatePricing(pricingEnvelope(tt.ret))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("translatePricing() error = %v", err)
				}
				if len(resp.Items) != 0 {
					t.Errorf("got %d items, want 0", len(resp.Items))
				}
				return
			}
			if KindOf(err) != KindRemote {
				t.Fatalf("KindOf = %q, want remote (err %v)", KindOf(err), err)
			}
			if !IsRemote(err) {
				t.Error("IsRemote = false")
			}
			catErr := err.(*Error)
			if catErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", catErr.Message, tt.wantMessage)
			}
		})
	}
}
