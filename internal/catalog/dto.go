package catalog

import (
	"time"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCategoryRequest adds a category, optionally with subcategories.
type CreateCategoryRequest struct {
	Name          string   `json:"name" validate:"required"`
	SubCategories []string `json:"sub_categories"`
}

// CreateBrandRequest adds a brand.
type CreateBrandRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateProductRequest adds a product listing.
type CreateProductRequest struct {
	Name                 string          `json:"name" validate:"required"`
	Description          string          `json:"description"`
	CategorySlug         string          `json:"category_slug" validate:"required"`
	SubCategorySlug      string          `json:"sub_category_slug"`
	BrandSlug            string          `json:"brand_slug"`
	BasePrice            decimal.Decimal `json:"base_price" validate:"required"`
	SellingPrice         decimal.Decimal `json:"selling_price" validate:"required"`
	Stock                int             `json:"stock"`
	PrescriptionRequired bool            `json:"prescription_required"`
	Bestseller           bool            `json:"bestseller"`
}

// ListProductsRequest filters and paginates product listings.
type ListProductsRequest struct {
	CategorySlug string
	BrandSlug    string
	Bestseller   *bool
	Limit        int
	Cursor       string
}

// ProductSummary is the listing view of a product.
type ProductSummary struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	Slug                 string          `json:"slug"`
	Category             string          `json:"category,omitempty"`
	SubCategory          string          `json:"sub_category,omitempty"`
	Brand                string          `json:"brand,omitempty"`
	BasePrice            decimal.Decimal `json:"base_price"`
	SellingPrice         decimal.Decimal `json:"selling_price"`
	Stock                int             `json:"stock"`
	PrescriptionRequired bool            `json:"prescription_required"`
	Bestseller           bool            `json:"bestseller"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ProductDetail extends the summary with the description.
type ProductDetail struct {
	ProductSummary
	Description string `json:"description"`
}

// ProductPage is a cursor-paginated product listing.
type ProductPage struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CategoryView is a category with its subcategories.
type CategoryView struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	SubCategories []SubCategoryView `json:"sub_categories"`
}

// SubCategoryView is the wire view of a subcategory.
type SubCategoryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// BrandView is the wire view of a brand.
type BrandView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func summaryFromModel(p *models.Product) ProductSummary {
	summary := ProductSummary{
		ID:                   p.ID,
		Name:                 p.Name,
		Slug:                 p.Slug,
		BasePrice:            p.BasePrice,
		SellingPrice:         p.SellingPrice,
		Stock:                p.Stock,
		PrescriptionRequired: p.PrescriptionRequired,
		Bestseller:           p.Bestseller,
		CreatedAt:            p.CreatedAt,
	}
	if p.Category != nil {
		summary.Category = p.Category.Name
	}
	if p.SubCategory != nil {
		summary.SubCategory = p.SubCategory.Name
	}
	if p.Brand != nil {
		summary.Brand = p.Brand.Name
	}
	return summary
}

func detailFromModel(p *models.Product) ProductDetail {
	return ProductDetail{
		ProductSummary: summaryFromModel(p),
		Description:    p.Description,
	}
}
