package model

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// IsStaff 管理员拥有全部员工权限
func (r UserRole) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// swagger:model User
type User struct {
	UUIDBase
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}
