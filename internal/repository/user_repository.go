package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/model"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// UserRepository defines credential store operations on users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// PromoteIfRole moves the user to role `to` only while the stored role is
	// still `from`. It reports whether the row changed.
	PromoteIfRole(ctx context.Context, id uint, from, to model.Role, status string) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	SetRoleByEmail(ctx context.Context, email string, role model.Role, status string) (int64, error)
	// WithTransaction runs fn with repositories bound to one database transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, users UserRepository, invites InviteRepository) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a user. A unique email violation is reported as ErrDuplicateUser.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return apperrors.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches the email exactly as stored.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) PromoteIfRole(ctx context.Context, id uint, from, to model.Role, status string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", id, from).
		Updates(map[string]any{"role": to, "hotmart_status": status})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("hotmart_status", status).Error
}

func (r *userRepository) SetRoleByEmail(ctx context.Context, email string, role model.Role, status string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).
		Updates(map[string]any{"role": role, "hotmart_status": status})
	return res.RowsAffected, res.Error
}

// WithTransaction executes a function within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, users UserRepository, invites InviteRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &userRepository{db: tx}, &inviteRepository{db: tx})
	})
}

// isDuplicateKey recognises unique violations from drivers with and without
// gorm error translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
