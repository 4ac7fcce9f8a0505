package user

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           int64          `gorm:"primaryKey"`
	Email        string         `gorm:"column:email;uniqueIndex;not null"`
	Name         string         `gorm:"column:name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	IsSuperAdmin bool           `gorm:"column:is_super_admin;not null;default:false"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (User) TableName() string {
	return "users"
}
