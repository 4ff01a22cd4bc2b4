package repository

import (
	"context"

	"gorm.io/gorm"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/model"
)

// InviteRepository defines credential store operations on invite codes.
type InviteRepository interface {
	FindByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// MarkUsed flips the code from unused to used for userID. It is a
	// compare-and-swap: if the code was already used it returns
	// ErrInviteAlreadyUsed and changes nothing.
	MarkUsed(ctx context.Context, id, userID uint) error
	CreateBatch(ctx context.Context, codes []model.InviteCode) error
}

type inviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new invite code repository.
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) FindByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteRepository) MarkUsed(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{"is_used": true, "used_by_user_id": userID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInviteAlreadyUsed
	}
	return nil
}

// CreateBatch inserts generated invite codes in a single statement batch.
func (r *inviteRepository) CreateBatch(ctx context.Context, codes []model.InviteCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(codes, 100).Error
}
