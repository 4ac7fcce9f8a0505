package company

import "time"

type Company struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedBy *int64    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
