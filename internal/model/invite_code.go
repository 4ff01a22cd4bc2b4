package model

import "time"

// InviteCode is a single-use code granting the invited role at signup.
type InviteCode struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Code         string     `json:"code" gorm:"uniqueIndex;size:64;not null"`
	IsUsed       bool       `json:"is_used" gorm:"not null;default:false;index"`
	UsedByUserID *uint      `json:"used_by_user_id,omitempty" gorm:"index"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (c *InviteCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
