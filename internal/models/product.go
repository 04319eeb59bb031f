package models

import "time"

// Product represents a product in the catalog. Image is the filename of the
// product picture in the upload store.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit" gorm:"type:varchar(32)"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
