package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentEvent is an audit entry for an authenticated payment webhook delivery.
// Every delivery is recorded regardless of whether it changed a user.
type PaymentEvent struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Event       string          `json:"event" gorm:"size:64;not null;index"`
	BuyerEmail  string          `json:"buyer_email" gorm:"size:255;index"`
	Transaction string          `json:"transaction" gorm:"size:128;index"`
	Status      string          `json:"status" gorm:"size:64"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,2)"`
	Currency    string          `json:"currency" gorm:"size:8"`
	Outcome     string          `json:"outcome" gorm:"size:32;not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (e *PaymentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
