package membership

import "time"

type Membership struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_memberships_user_company"`
	CompanyID  int64     `gorm:"column:company_id;not null;uniqueIndex:idx_memberships_user_company;index"`
	Role       string    `gorm:"column:role;not null"`
	AssignedBy *int64    `gorm:"column:assigned_by"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (Membership) TableName() string {
	return "memberships"
}
