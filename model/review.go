package model

import "time"

// Rating bounds. The check constraint on Review.Rating must use the same values.
const (
	MinRating = 1
	MaxRating = 10
)

type Review struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	UserID       uint          `json:"user_id" gorm:"not null;index"`
	User         User          `json:"user" gorm:"constraint:OnDelete:CASCADE;"`
	AddressID    uint          `json:"address_id" gorm:"not null;index"`
	Address      Address       `json:"address" gorm:"constraint:OnDelete:CASCADE;"`
	CafeShopName string        `json:"cafe_shop_name" gorm:"size:255;not null"`
	Rating       int           `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 10"`
	Review       *string       `json:"review" gorm:"type:text"`
	Images       []ReviewImage `json:"images" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE;"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type ReviewImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReviewID  uint      `json:"review_id" gorm:"not null;index"`
	Image     string    `json:"image" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
