package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCashier UserRole = "cashier" // till operator, acts on own cart
	RoleAdmin   UserRole = "admin"   // may act on any user's cart
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Mobile       string         `gorm:"uniqueIndex;size:10;not null" json:"mobile"` // 10 digits, leading 6-9
	Username     *string        `gorm:"uniqueIndex" json:"username,omitempty"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);default:'cashier'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
