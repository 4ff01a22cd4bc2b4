package model

import "time"

// Role is the access tier of a user.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleInvited Role = "invited"
	RolePaid    Role = "paid"
)

// IsValid checks if the role is one of the known tiers.
func (r Role) IsValid() bool {
	switch r {
	case RoleGuest, RoleInvited, RolePaid:
		return true
	default:
		return false
	}
}

// User represents a catalog account.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;default:'guest';index"`
	InviteCodeUsed *string   `json:"invite_code_used,omitempty" gorm:"size:64"`
	HotmartStatus  *string   `json:"hotmart_status,omitempty" gorm:"size:255"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
