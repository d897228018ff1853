package catalog

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sub_categories (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS brands (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  category_id TEXT NOT NULL,
  sub_category_id TEXT,
  brand_id TEXT,
  base_price TEXT NOT NULL,
  selling_price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  prescription_required INTEGER NOT NULL DEFAULT 0,
  bestseller INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCatalogService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedTaxonomy(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CreateCategoryRequest{
		Name:          "Pain Relief",
		SubCategories: []string{"Tablets", "Gels"},
	})
	require.NoError(t, err)

	_, err = svc.CreateBrand(ctx, CreateBrandRequest{Name: "Acme Pharma"})
	require.NoError(t, err)
}

func seedProduct(t *testing.T, svc *Service, name string, price string, stock int, bestseller bool) *ProductDetail {
	t.Helper()

	detail, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:            name,
		Description:     "test listing",
		CategorySlug:    "pain-relief",
		SubCategorySlug: "tablets",
		BrandSlug:       "acme-pharma",
		BasePrice:       decimal.RequireFromString(price),
		SellingPrice:    decimal.RequireFromString(price),
		Stock:           stock,
		Bestseller:      bestseller,
	})
	require.NoError(t, err)
	return detail
}

func TestCreateCategoryReservesSlugs(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t))
	ctx := context.Background()

	first, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Pain Relief"})
	require.NoError(t, err)
	assert.Equal(t, "pain-relief", first.Slug)

	second, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Pain Relief"})
	require.NoError(t, err)
	assert.Equal(t, "pain-relief-1", second.Slug)
}

func TestCreateProductAndGetBySlug(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t))
	seedTaxonomy(t, svc)

	created := seedProduct(t, svc, "Paracetamol 500mg", "4.99", 50, true)
	assert.Equal(t, "paracetamol-500mg", created.Slug)
	assert.Equal(t, "Pain Relief", created.Category)
	assert.Equal(t, "Tablets", created.SubCategory)
	assert.Equal(t, "Acme Pharma", created.Brand)

	got, err := svc.GetProduct(context.Background(), "paracetamol-500mg")
	require.NoError(t, err)
	assert.True(t, got.SellingPrice.Equal(decimal.RequireFromString("4.99")))
}

func TestCreateProductUnknownCategory(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t))

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:         "Paracetamol",
		CategorySlug: "missing",
		BasePrice:    decimal.RequireFromString("1.00"),
		SellingPrice: decimal.RequireFromString("1.00"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.NotEmpty(t, typed.Fields()["category_slug"])
}

func TestGetProductNotFound(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t))

	_, err := svc.GetProduct(context.Background(), "ghost")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListProductsPagination(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	seedTaxonomy(t, svc)
	ctx := context.Background()

	for i, name := range []string{"Alpha", "Bravo", "Charlie"} {
		detail := seedProduct(t, svc, name, "2.50", 10, false)
		// spread created_at so keyset ordering is deterministic
		created := time.Date(2026, 2, 1, 10, i, 0, 0, time.UTC)
		require.NoError(t, db.Table("products").Where("id = ?", detail.ID).Update("created_at", created).Error)
	}

	page, err := svc.ListProducts(ctx, ListProductsRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Charlie", page.Products[0].Name)
	assert.Equal(t, "Bravo", page.Products[1].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListProducts(ctx, ListProductsRequest{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Equal(t, "Alpha", rest.Products[0].Name)
	assert.Empty(t, rest.NextCursor)
}

func TestListProductsFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	seedTaxonomy(t, svc)
	ctx := context.Background()

	seedProduct(t, svc, "Regular", "2.50", 10, false)
	seedProduct(t, svc, "Popular", "3.50", 10, true)

	bestsellers := true
	page, err := svc.ListProducts(ctx, ListProductsRequest{Bestseller: &bestsellers})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Popular", page.Products[0].Name)

	page, err = svc.ListProducts(ctx, ListProductsRequest{CategorySlug: "pain-relief"})
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)

	page, err = svc.ListProducts(ctx, ListProductsRequest{CategorySlug: "other"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
}

func TestListCategoriesTree(t *testing.T) {
	svc := newCatalogService(t, setupCatalogTestDB(t))
	seedTaxonomy(t, svc)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "pain-relief", categories[0].Slug)
	assert.Len(t, categories[0].SubCategories, 2)
}
