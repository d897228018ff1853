package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type productFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service owns the per-user shopping cart. Lines store only product and
// quantity, so prices always reflect the live catalog.
type Service struct {
	db       *db.Client
	repo     *Repository
	products productFinder
}

// NewService constructs the cart service.
func NewService(client *db.Client, products productFinder) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	return &Service{db: client, repo: NewRepository(client.DB()), products: products}, nil
}

// View returns the caller's cart priced at current selling prices.
func (s *Service) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}

	view := &CartView{Items: make([]LineView, 0, len(rows)), Total: decimal.Zero}
	for i := range rows {
		line := lineFromModel(&rows[i])
		view.Items = append(view.Items, line)
		view.Total = view.Total.Add(line.LineTotal)
	}
	return view, nil
}

// Add puts a product in the cart. Adding a product already present
// increments the existing line instead of duplicating it.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.NewField("quantity", "quantity must be at least 1")
	}
	product, err := s.loadActiveProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	addLine := func() error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := NewRepository(tx)
			existing, err := repo.FindLine(ctx, userID, product.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return repo.Create(ctx, &models.CartItem{
						UserID:    userID,
						ProductID: product.ID,
						Quantity:  req.Quantity,
					})
				}
				return err
			}
			_, err = repo.SetQuantity(ctx, userID, product.ID, existing.Quantity+req.Quantity)
			return err
		})
	}

	err = addLine()
	if db.IsUniqueViolation(err, "idx_cart_user_product") {
		// a concurrent add created the line after our lookup; the second
		// pass lands on the increment path
		err = addLine()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}
	return s.View(ctx, userID)
}

// UpdateQuantity replaces the quantity on an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, req UpdateItemRequest) (*CartView, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.NewField("quantity", "quantity must be at least 1")
	}

	affected, err := s.repo.SetQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.View(ctx, userID)
}

// Remove drops one line from the cart.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	affected, err := s.repo.DeleteLine(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.View(ctx, userID)
}

// Clear empties the caller's cart.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.ClearByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *Service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}
