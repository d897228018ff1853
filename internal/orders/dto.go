package orders

import (
	"time"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemView is one order line priced as it was at checkout.
type ItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// AddressView is the delivery address snapshot shown on an order.
type AddressView struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderView is the wire view of one order.
type OrderView struct {
	ID            uuid.UUID       `json:"id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	Items         []ItemView      `json:"items"`
	Address       *AddressView    `json:"address,omitempty"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// ViewFromModel maps a loaded order row onto its wire view.
func ViewFromModel(o *models.Order) OrderView {
	view := OrderView{
		ID:            o.ID,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		Total:         o.Total,
		Items:         make([]ItemView, 0, len(o.Items)),
		PlacedAt:      o.CreatedAt,
	}
	for i := range o.Items {
		line := ItemView{
			ProductID: o.Items[i].ProductID,
			Quantity:  o.Items[i].Quantity,
			Price:     o.Items[i].Price,
			LineTotal: o.Items[i].Price.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity))),
		}
		if p := o.Items[i].Product; p != nil {
			line.Name = p.Name
			line.Slug = p.Slug
		}
		view.Items = append(view.Items, line)
	}
	if a := o.Address; a != nil {
		addr := AddressView{
			FullName:   a.FullName,
			Phone:      a.Phone,
			Line1:      a.Line1,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
		if a.Line2 != nil {
			addr.Line2 = *a.Line2
		}
		view.Address = &addr
	}
	return view
}
