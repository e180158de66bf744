package models

import "time"

type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Username string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:100;not null" json:"email,omitempty"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"size:16;not null;default:USER" json:"role,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=USER MODERATOR ADMIN"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// UserProfile is the public view of a user with content counts.
type UserProfile struct {
	User
	QuestionCount int64 `json:"questionCount"`
	AnswerCount   int64 `json:"answerCount"`
}
