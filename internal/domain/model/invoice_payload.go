package model

import (
	"encoding/json"

	"github.com/google/uuid"

	"telegram-prediction-backend/internal/domain"
)

// InvoicePayload is the opaque string handed to the payment provider and
// echoed back verbatim on every callback. Its schema is strict by contract:
// exactly these three keys, every value a UUID string. Anything else is a
// hard validation failure, never a best-effort parse.
type InvoicePayload struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	PaymentID string `json:"paymentId"`
}

// Encode serializes the payload for the provider.
func (p InvoicePayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var payloadKeys = map[string]struct{}{
	"userId":    {},
	"productId": {},
	"paymentId": {},
}

// ParseInvoicePayload decodes and structurally validates a provider-echoed
// payload. Unknown keys, missing keys, non-object payloads and malformed ids
// all fail with domain.ErrInvalidPayload.
func ParseInvoicePayload(raw string) (InvoicePayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return InvoicePayload{}, domain.ErrInvalidPayload
	}
	if len(fields) != len(payloadKeys) {
		return InvoicePayload{}, domain.ErrInvalidPayload
	}
	out := InvoicePayload{}
	for key, rawVal := range fields {
		if _, ok := payloadKeys[key]; !ok {
			return InvoicePayload{}, domain.ErrInvalidPayload
		}
		var val string
		if err := json.Unmarshal(rawVal, &val); err != nil {
			return InvoicePayload{}, domain.ErrInvalidPayload
		}
		if _, err := uuid.Parse(val); err != nil {
			return InvoicePayload{}, domain.ErrInvalidPayload
		}
		switch key {
		case "userId":
			out.UserID = val
		case "productId":
			out.ProductID = val
		case "paymentId":
			out.PaymentID = val
		}
	}
	return out, nil
}
