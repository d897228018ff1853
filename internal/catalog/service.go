package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/pagination"
	"github.com/aspida-health/aspida-backend/pkg/uniqueid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns catalog reads and listing management.
type Service struct {
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &Service{repo: repo}, nil
}

// ListProducts returns a filtered, cursor-paginated product page.
func (s *Service) ListProducts(ctx context.Context, req ListProductsRequest) (*ProductPage, error) {
	cursor, err := pagination.ParseCursor(req.Cursor)
	if err != nil {
		return nil, pkgerrors.NewField("cursor", "invalid cursor")
	}

	filter := ProductFilter{
		CategorySlug: req.CategorySlug,
		BrandSlug:    req.BrandSlug,
		Bestseller:   req.Bestseller,
	}
	rows, err := s.repo.ListProducts(ctx, filter, cursor, pagination.LimitWithBuffer(req.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	page, more := pagination.TrimPage(rows, req.Limit)
	out := &ProductPage{Products: make([]ProductSummary, 0, len(page))}
	for i := range page {
		out.Products = append(out.Products, summaryFromModel(&page[i]))
	}
	if more && len(page) > 0 {
		last := page[len(page)-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, nil
}

// GetProduct loads one product by slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (*ProductDetail, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	detail := detailFromModel(product)
	return &detail, nil
}

// ListCategories returns the category tree.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryView, 0, len(rows))
	for _, c := range rows {
		view := CategoryView{
			ID:            c.ID,
			Name:          c.Name,
			Slug:          c.Slug,
			SubCategories: make([]SubCategoryView, 0, len(c.SubCategories)),
		}
		for _, sc := range c.SubCategories {
			view.SubCategories = append(view.SubCategories, SubCategoryView{ID: sc.ID, Name: sc.Name, Slug: sc.Slug})
		}
		out = append(out, view)
	}
	return out, nil
}

// ListBrands returns every brand.
func (s *Service) ListBrands(ctx context.Context) ([]BrandView, error) {
	rows, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list brands")
	}
	out := make([]BrandView, 0, len(rows))
	for _, b := range rows {
		out = append(out, BrandView{ID: b.ID, Name: b.Name, Slug: b.Slug})
	}
	return out, nil
}

// CreateCategory adds a category with a reserved slug, plus any subcategories.
func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryView, error) {
	slug, err := s.reserveSlug(ctx, req.Name, s.repo.CategorySlugExists)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: strings.TrimSpace(req.Name), Slug: slug}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}

	view := CategoryView{ID: category.ID, Name: category.Name, Slug: category.Slug, SubCategories: []SubCategoryView{}}
	for _, name := range req.SubCategories {
		subSlug, err := s.reserveSlug(ctx, name, s.repo.SubCategorySlugExists)
		if err != nil {
			return nil, err
		}
		sub := &models.SubCategory{CategoryID: category.ID, Name: strings.TrimSpace(name), Slug: subSlug}
		if err := s.repo.CreateSubCategory(ctx, sub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subcategory")
		}
		view.SubCategories = append(view.SubCategories, SubCategoryView{ID: sub.ID, Name: sub.Name, Slug: sub.Slug})
	}
	return &view, nil
}

// CreateBrand adds a brand with a reserved slug.
func (s *Service) CreateBrand(ctx context.Context, req CreateBrandRequest) (*BrandView, error) {
	slug, err := s.reserveSlug(ctx, req.Name, s.repo.BrandSlugExists)
	if err != nil {
		return nil, err
	}
	brand := &models.Brand{Name: strings.TrimSpace(req.Name), Slug: slug}
	if err := s.repo.CreateBrand(ctx, brand); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create brand")
	}
	return &BrandView{ID: brand.ID, Name: brand.Name, Slug: brand.Slug}, nil
}

// CreateProduct adds a listing, resolving taxonomy by slug.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductDetail, error) {
	if req.SellingPrice.IsNegative() || req.BasePrice.IsNegative() {
		return nil, pkgerrors.NewField("selling_price", "prices cannot be negative")
	}
	if req.Stock < 0 {
		return nil, pkgerrors.NewField("stock", "stock cannot be negative")
	}

	product := &models.Product{
		Name:                 strings.TrimSpace(req.Name),
		Description:          req.Description,
		BasePrice:            req.BasePrice,
		SellingPrice:         req.SellingPrice,
		Stock:                req.Stock,
		PrescriptionRequired: req.PrescriptionRequired,
		Bestseller:           req.Bestseller,
		IsActive:             true,
	}

	if err := s.resolveTaxonomy(ctx, req, product); err != nil {
		return nil, err
	}

	slug, err := s.reserveSlug(ctx, req.Name, s.repo.ProductSlugExists)
	if err != nil {
		return nil, err
	}
	product.Slug = slug

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	return s.GetProduct(ctx, product.Slug)
}

func (s *Service) resolveTaxonomy(ctx context.Context, req CreateProductRequest, product *models.Product) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load categories")
	}
	for _, c := range categories {
		if c.Slug == req.CategorySlug {
			product.CategoryID = c.ID
			for _, sc := range c.SubCategories {
				if req.SubCategorySlug != "" && sc.Slug == req.SubCategorySlug {
					id := sc.ID
					product.SubCategoryID = &id
				}
			}
		}
	}
	if product.CategoryID == uuid.Nil {
		return pkgerrors.NewField("category_slug", "unknown category")
	}
	if req.SubCategorySlug != "" && product.SubCategoryID == nil {
		return pkgerrors.NewField("sub_category_slug", "unknown subcategory")
	}

	if req.BrandSlug != "" {
		brands, err := s.repo.ListBrands(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load brands")
		}
		for _, b := range brands {
			if b.Slug == req.BrandSlug {
				id := b.ID
				product.BrandID = &id
			}
		}
		if product.BrandID == nil {
			return pkgerrors.NewField("brand_slug", "unknown brand")
		}
	}
	return nil
}

func (s *Service) reserveSlug(ctx context.Context, name string, exists uniqueid.ExistsFunc) (string, error) {
	base := uniqueid.Slugify(name)
	if base == "" {
		return "", pkgerrors.NewField("name", "name must contain letters or digits")
	}
	slug, err := uniqueid.Reserve(ctx, base, exists)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve slug")
	}
	return slug, nil
}
