package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"not null" json:"username"`
	Email     string     `gorm:"not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	AvatarURL string     `json:"avatar"`
	IsAdmin   bool       `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt time.Time  `json:"createdAt"`
	Games     []UserGame `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SignUpInput - used to validate registration
type SignUpInput struct {
	Username        string `json:"username" validate:"required,min=5,max=40,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// SignInInput - used to validate login
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AlterUserInput - admin toggles on another account
type AlterUserInput struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

// UpdateAccountInput - every field is optional. Changing the email or the
// password requires the current password.
type UpdateAccountInput struct {
	Username    string `json:"username" validate:"omitempty,min=5,max=40,username"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"omitempty,min=6"`
	NewPassword string `json:"new_password" validate:"omitempty,min=6,max=100"`
}

type DeleteAccountInput struct {
	Password string `json:"password" validate:"required"`
}
