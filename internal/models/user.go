package models

import "time"

type User struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // не отдаём наружу
	RoleID         int       `json:"role_id"`
	BonusBalance   int64     `json:"bonus_balance"`
	TelegramChatID int64     `json:"-"`
	NotifyTelegram bool      `json:"notify_telegram"`
	CreatedAt      time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	AdminName   string `json:"admin_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

// UserPatch carries editable profile fields. The bonus balance is not one of them.
type UserPatch struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	RoleID         *int    `json:"role_id"`
	NotifyTelegram *bool   `json:"notify_telegram"`
}
