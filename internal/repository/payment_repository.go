package repository

import (
	"context"

	"gorm.io/gorm"

	"gptcatalog/internal/model"
)

// PaymentEventRepository defines payment webhook audit persistence operations.
type PaymentEventRepository interface {
	Create(ctx context.Context, event *model.PaymentEvent) error
	CreateBatch(ctx context.Context, events []model.PaymentEvent) error
	ListByEmail(ctx context.Context, email string) ([]model.PaymentEvent, error)
}

type paymentEventRepository struct {
	db *gorm.DB
}

// NewPaymentEventRepository creates a new payment event repository.
func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepository{db: db}
}

// Create creates a new payment event entry.
func (r *paymentEventRepository) Create(ctx context.Context, event *model.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch creates multiple payment event entries in a single transaction.
func (r *paymentEventRepository) CreateBatch(ctx context.Context, events []model.PaymentEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

// ListByEmail returns the audit trail for one buyer, oldest first.
func (r *paymentEventRepository) ListByEmail(ctx context.Context, email string) ([]model.PaymentEvent, error) {
	var events []model.PaymentEvent
	if err := r.db.WithContext(ctx).Where("buyer_email = ?", email).Order("created_at asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
