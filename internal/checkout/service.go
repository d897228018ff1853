package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspida-health/aspida-backend/internal/addresses"
	"github.com/aspida-health/aspida-backend/internal/cart"
	"github.com/aspida-health/aspida-backend/internal/catalog"
	"github.com/aspida-health/aspida-backend/internal/orders"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlaceOrderRequest turns the caller's cart into an order.
type PlaceOrderRequest struct {
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

// Service converts carts into orders. The whole conversion runs in one
// transaction so a stock shortfall on any line leaves cart and inventory
// untouched.
type Service struct {
	db  *db.Client
	log *logger.Logger
}

// NewService constructs the checkout service.
func NewService(client *db.Client, log *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Service{db: client, log: log}, nil
}

// PlaceOrder checks the delivery address belongs to the caller, snapshots
// every cart line at its current selling price, takes the stock, writes the
// order, and clears the cart. Any failure rolls the whole thing back.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*orders.OrderView, error) {
	var orderID uuid.UUID

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		addressRepo := addresses.NewRepository(tx)
		cartRepo := cart.NewRepository(tx)
		productRepo := catalog.NewRepository(tx)
		orderRepo := orders.NewRepository(tx)

		if _, err := addressRepo.FindOwned(ctx, userID, req.AddressID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.NewField("address_id", "unknown address")
			}
			return err
		}

		lines, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart is empty")
		}

		order := &models.Order{
			UserID:        userID,
			AddressID:     req.AddressID,
			Status:        enums.OrderStatusPlaced,
			PaymentStatus: enums.PaymentStatusPending,
			Total:         decimal.Zero,
			Items:         make([]models.OrderItem, 0, len(lines)),
		}

		for i := range lines {
			product := lines[i].Product
			if product == nil || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "a cart item is no longer available")
			}

			affected, err := productRepo.DecrementStock(ctx, product.ID, lines[i].Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("insufficient stock for %s", product.Name))
			}

			order.Items = append(order.Items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  lines[i].Quantity,
				Price:     product.SellingPrice,
			})
			lineTotal := product.SellingPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
			order.Total = order.Total.Add(lineTotal)
		}

		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if err := cartRepo.ClearByUser(ctx, userID); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
	}

	if s.log != nil {
		s.log.Info(s.log.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"user_id":  userID.String(),
		}), "order placed")
	}

	placed, err := orders.NewRepository(s.db.DB()).FindOwned(ctx, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load placed order")
	}
	view := orders.ViewFromModel(placed)
	return &view, nil
}
