package domain

import "time"

// Member is a registered platform user (users table)
type Member struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email     *string   `gorm:"column:email;size:255;uniqueIndex" json:"email,omitempty"`
	Phone     *string   `gorm:"column:phone;size:30;uniqueIndex" json:"phone,omitempty"`
	Role      Role      `gorm:"column:role;size:20;not null" json:"role"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Member) TableName() string { return "users" }

// Principal returns the authenticated view of the member
func (m *Member) Principal() Principal {
	return Principal{ID: m.ID, Role: m.Role}
}
