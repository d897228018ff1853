package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable catalog listing. SellingPrice is what the
// customer pays; BasePrice is the pre-discount list price.
type Product struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string          `gorm:"column:name;not null"`
	Slug                 string          `gorm:"column:slug;not null;uniqueIndex"`
	Description          string          `gorm:"column:description;not null;default:''"`
	CategoryID           uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	Category             *Category       `gorm:"foreignKey:CategoryID"`
	SubCategoryID        *uuid.UUID      `gorm:"column:sub_category_id;type:uuid;index"`
	SubCategory          *SubCategory    `gorm:"foreignKey:SubCategoryID"`
	BrandID              *uuid.UUID      `gorm:"column:brand_id;type:uuid;index"`
	Brand                *Brand          `gorm:"foreignKey:BrandID"`
	BasePrice            decimal.Decimal `gorm:"column:base_price;type:numeric(10,2);not null"`
	SellingPrice         decimal.Decimal `gorm:"column:selling_price;type:numeric(10,2);not null"`
	Stock                int             `gorm:"column:stock;not null;default:0"`
	PrescriptionRequired bool            `gorm:"column:prescription_required;not null;default:false"`
	Bestseller           bool            `gorm:"column:bestseller;not null;default:false"`
	IsActive             bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
