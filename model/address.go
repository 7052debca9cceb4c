package model

import "time"

// Address is a location reviews point at. Several reviews may share one.
type Address struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Country             string    `json:"country" gorm:"size:255;not null"`
	StateProvinceRegion *string   `json:"state_province_region" gorm:"size:255"`
	City                string    `json:"city" gorm:"size:255;not null"`
	Description         *string   `json:"description" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
