package catalog

import (
	"context"
	"strings"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategorySlug string
	BrandSlug    string
	Bestseller   *bool
}

// ListProducts returns active products newest-first, keyset-paginated.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Preload("SubCategory").
		Preload("Brand").
		Where("products.is_active = ?", true)

	if filter.CategorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", strings.TrimSpace(filter.CategorySlug))
	}
	if filter.BrandSlug != "" {
		q = q.Joins("JOIN brands ON brands.id = products.brand_id").
			Where("brands.slug = ?", strings.TrimSpace(filter.BrandSlug))
	}
	if filter.Bestseller != nil {
		q = q.Where("products.bestseller = ?", *filter.Bestseller)
	}
	if cursor != nil {
		q = q.Where(
			"(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	err := q.Order("products.created_at DESC, products.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProductBySlug loads one active product with its relations.
func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("SubCategory").
		Preload("Brand").
		Where("slug = ? AND is_active = ?", strings.TrimSpace(slug), true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByID loads a product regardless of listing filters.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock atomically takes quantity units off one product, refusing
// to go below zero. Returns the number of rows hit (zero means not enough
// stock or no such product).
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	return res.RowsAffected, res.Error
}

// ListCategories returns every category with its subcategories.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Preload("SubCategories").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBrands returns every brand.
func (r *Repository) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var rows []models.Brand
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateCategory inserts a category row.
func (r *Repository) CreateCategory(ctx context.Context, row *models.Category) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateSubCategory inserts a subcategory row.
func (r *Repository) CreateSubCategory(ctx context.Context, row *models.SubCategory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateBrand inserts a brand row.
func (r *Repository) CreateBrand(ctx context.Context, row *models.Brand) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateProduct inserts a product row.
func (r *Repository) CreateProduct(ctx context.Context, row *models.Product) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// CategorySlugExists reports whether the slug is taken.
func (r *Repository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return r.slugExists(ctx, &models.Category{}, slug)
}

// SubCategorySlugExists reports whether the slug is taken.
func (r *Repository) SubCategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return r.slugExists(ctx, &models.SubCategory{}, slug)
}

// BrandSlugExists reports whether the slug is taken.
func (r *Repository) BrandSlugExists(ctx context.Context, slug string) (bool, error) {
	return r.slugExists(ctx, &models.Brand{}, slug)
}

// ProductSlugExists reports whether the slug is taken.
func (r *Repository) ProductSlugExists(ctx context.Context, slug string) (bool, error) {
	return r.slugExists(ctx, &models.Product{}, slug)
}

func (r *Repository) slugExists(ctx context.Context, model any, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(model).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}
