package user

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	Name           string    `gorm:"column:name" json:"name"`
	Email          string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Role           Role      `gorm:"column:role;type:varchar(10);not null" json:"role"`
	AvatarURL      string    `gorm:"column:avatar_url" json:"avatar_url"`
	IsBanned       bool      `gorm:"column:is_banned;default:false" json:"is_banned"`
	TasksCompleted int64     `gorm:"column:tasks_completed;default:0" json:"tasks_completed"`
	JoinedAt       time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}
