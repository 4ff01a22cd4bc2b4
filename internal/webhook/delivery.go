// Package webhook decodes payment provider deliveries into a closed set of
// event kinds before they reach the role transition logic.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "gptcatalog/internal/errors"
)

// Provider event names.
const (
	EventPurchaseApproved   = "purchase.approved"
	EventPurchaseRefunded   = "purchase.refunded"
	EventPurchaseChargeback = "purchase.chargeback"
	EventPurchaseCanceled   = "purchase.canceled"

	StatusApproved = "approved"

	// HeaderToken carries the security token when it is not in the body.
	HeaderToken = "X-Hotmart-Hottok"
)

// Kind tags a Delivery.
type Kind string

const (
	KindPurchaseApproved Kind = "purchase_approved"
	KindPurchaseReversed Kind = "purchase_reversed"
	KindUnknown          Kind = "unknown"
)

type payload struct {
	ID            string      `json:"id"`
	Event         string      `json:"event"`
	SecurityToken string      `json:"securityToken"`
	Hottok        string      `json:"hottok"`
	Data          payloadData `json:"data"`
}

type payloadData struct {
	Buyer struct {
		Email string `json:"email"`
	} `json:"buyer"`
	Purchase struct {
		Transaction string `json:"transaction"`
		Status      string `json:"status"`
		Price       struct {
			Value    decimal.NullDecimal `json:"value"`
			Currency string              `json:"currency_value"`
		} `json:"price"`
	} `json:"purchase"`
}

// Delivery is a decoded webhook request.
type Delivery struct {
	Kind        Kind
	ID          string
	Event       string
	Token       string
	BuyerEmail  string
	Transaction string
	Status      string
	Amount      decimal.Decimal
	Currency    string
	// Raw holds the undecoded body for unknown events.
	Raw json.RawMessage
}

// Parse decodes body. The security token is read from securityToken, then the
// legacy hottok field, then headerToken. Only malformed JSON is an error;
// authenticity and buyer identity are checked by the caller.
func Parse(body []byte, headerToken string) (*Delivery, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadPayload, err)
	}

	d := &Delivery{
		ID:          p.ID,
		Event:       p.Event,
		Token:       firstNonEmpty(p.SecurityToken, p.Hottok, headerToken),
		BuyerEmail:  strings.TrimSpace(p.Data.Buyer.Email),
		Transaction: p.Data.Purchase.Transaction,
		Status:      p.Data.Purchase.Status,
		Currency:    p.Data.Purchase.Price.Currency,
	}
	if p.Data.Purchase.Price.Value.Valid {
		d.Amount = p.Data.Purchase.Price.Value.Decimal
	}

	switch p.Event {
	case EventPurchaseApproved:
		d.Kind = KindPurchaseApproved
	case EventPurchaseRefunded, EventPurchaseChargeback, EventPurchaseCanceled:
		d.Kind = KindPurchaseReversed
	default:
		d.Kind = KindUnknown
		d.Raw = append(json.RawMessage(nil), body...)
	}
	return d, nil
}

// Approved reports whether the purchase status confirms payment.
func (d *Delivery) Approved() bool {
	return d.Status == StatusApproved
}

// AuditStatus is the string stored on the user for this delivery.
func (d *Delivery) AuditStatus() string {
	tx := d.Transaction
	if d.Kind == KindPurchaseApproved {
		return StatusApproved + ":" + tx
	}
	if tx == "" {
		tx = "N/A"
	}
	return d.Event + ":" + tx
}

// DedupeKey identifies redeliveries of the same provider event.
func (d *Delivery) DedupeKey() string {
	return d.Event + "|" + d.Transaction + "|" + d.Status
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
