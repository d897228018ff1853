package cart

import (
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest puts a product in the caller's cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// UpdateItemRequest replaces the quantity on an existing line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// LineView is one cart line priced at the product's live selling price.
type LineView struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Stock        int             `json:"stock"`
	InStock      bool            `json:"in_stock"`
}

// CartView is the whole cart with its running total.
type CartView struct {
	Items []LineView      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func lineFromModel(item *models.CartItem) LineView {
	line := LineView{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		line.Name = item.Product.Name
		line.Slug = item.Product.Slug
		line.SellingPrice = item.Product.SellingPrice
		line.Stock = item.Product.Stock
		line.InStock = item.Product.Stock >= item.Quantity
		line.LineTotal = item.Product.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return line
}
