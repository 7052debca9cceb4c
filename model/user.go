package model

import "time"

type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:255;not null"`
	Email      string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password   string    `json:"-" gorm:"not null"`
	ProfilePic *string   `json:"profile_pic"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
