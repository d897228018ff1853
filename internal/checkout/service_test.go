package checkout

import (
	"context"
	"testing"

	"github.com/aspida-health/aspida-backend/internal/orders"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	svc    *Service
	client *db.Client
	userID uuid.UUID
}

func setupCheckoutTestDB(t *testing.T) *checkoutFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  total TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	client := db.NewWithConn(conn)
	svc, err := NewService(client, nil)
	require.NoError(t, err)
	return &checkoutFixture{svc: svc, client: client, userID: uuid.New()}
}

func (f *checkoutFixture) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Slug:         name,
		CategoryID:   uuid.New(),
		BasePrice:    decimal.RequireFromString(price),
		SellingPrice: decimal.RequireFromString(price),
		Stock:        stock,
		IsActive:     true,
	}
	require.NoError(t, f.client.DB().Create(product).Error)
	return product
}

func (f *checkoutFixture) seedAddress(t *testing.T, userID uuid.UUID) *models.Address {
	t.Helper()

	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   "Maria Santos",
		Phone:      "+14155550100",
		Line1:      "12 Harbour St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
		IsDefault:  true,
	}
	require.NoError(t, f.client.DB().Create(address).Error)
	return address
}

func (f *checkoutFixture) addToCart(t *testing.T, productID uuid.UUID, quantity int) {
	t.Helper()

	require.NoError(t, f.client.DB().Create(&models.CartItem{
		ID:        uuid.New(),
		UserID:    f.userID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error)
}

func (f *checkoutFixture) productStock(t *testing.T, productID uuid.UUID) int {
	t.Helper()

	var product models.Product
	require.NoError(t, f.client.DB().First(&product, "id = ?", productID).Error)
	return product.Stock
}

func (f *checkoutFixture) cartSize(t *testing.T) int {
	t.Helper()

	var count int64
	require.NoError(t, f.client.DB().Model(&models.CartItem{}).
		Where("user_id = ?", f.userID).Count(&count).Error)
	return int(count)
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	address := f.seedAddress(t, f.userID)
	paracetamol := f.seedProduct(t, "paracetamol", "4.50", 10)
	syrup := f.seedProduct(t, "syrup", "8.00", 5)
	f.addToCart(t, paracetamol.ID, 2)
	f.addToCart(t, syrup.ID, 1)

	view, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: address.ID})
	require.NoError(t, err)

	assert.Equal(t, "placed", view.Status)
	assert.Equal(t, "pending", view.PaymentStatus)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("17.00")))
	assert.Len(t, view.Items, 2)
	require.NotNil(t, view.Address)
	assert.Equal(t, "12 Harbour St", view.Address.Line1)

	assert.Equal(t, 8, f.productStock(t, paracetamol.ID))
	assert.Equal(t, 4, f.productStock(t, syrup.ID))
	assert.Zero(t, f.cartSize(t))
}

func TestPlaceOrderSnapshotsPrice(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	address := f.seedAddress(t, f.userID)
	product := f.seedProduct(t, "vitamin-c", "6.00", 10)
	f.addToCart(t, product.ID, 1)

	view, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: address.ID})
	require.NoError(t, err)

	// repricing the catalog after checkout must not move the order
	require.NoError(t, f.client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("selling_price", "9.99").Error)

	ordersSvc, err := orders.NewService(f.client)
	require.NoError(t, err)
	reloaded, err := ordersSvc.Get(ctx, f.userID, view.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.True(t, reloaded.Items[0].Price.Equal(decimal.RequireFromString("6.00")))
	assert.True(t, reloaded.Total.Equal(decimal.RequireFromString("6.00")))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := setupCheckoutTestDB(t)
	address := f.seedAddress(t, f.userID)

	_, err := f.svc.PlaceOrder(context.Background(), f.userID, PlaceOrderRequest{AddressID: address.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestPlaceOrderForeignAddress(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	stranger := uuid.New()
	foreign := f.seedAddress(t, stranger)
	product := f.seedProduct(t, "bandages", "1.50", 10)
	f.addToCart(t, product.ID, 1)

	_, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: foreign.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.NotEmpty(t, typed.Fields()["address_id"])

	// nothing moved
	assert.Equal(t, 10, f.productStock(t, product.ID))
	assert.Equal(t, 1, f.cartSize(t))
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	address := f.seedAddress(t, f.userID)
	plenty := f.seedProduct(t, "gauze", "2.50", 10)
	scarce := f.seedProduct(t, "thermometer", "20.00", 1)
	f.addToCart(t, plenty.ID, 2)
	f.addToCart(t, scarce.ID, 3)

	_, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: address.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the first line's decrement rolled back with the rest
	assert.Equal(t, 10, f.productStock(t, plenty.ID))
	assert.Equal(t, 1, f.productStock(t, scarce.ID))
	assert.Equal(t, 2, f.cartSize(t))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderInactiveProductInCart(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	address := f.seedAddress(t, f.userID)
	product := f.seedProduct(t, "retired", "3.00", 10)
	f.addToCart(t, product.ID, 1)

	require.NoError(t, f.client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("is_active", false).Error)

	_, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: address.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, 1, f.cartSize(t))
}

func TestOrderHistoryScopedToUser(t *testing.T) {
	f := setupCheckoutTestDB(t)
	ctx := context.Background()
	address := f.seedAddress(t, f.userID)
	product := f.seedProduct(t, "lozenges", "3.00", 10)
	f.addToCart(t, product.ID, 1)

	placed, err := f.svc.PlaceOrder(ctx, f.userID, PlaceOrderRequest{AddressID: address.ID})
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(f.client)
	require.NoError(t, err)

	mine, err := ordersSvc.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, placed.ID, mine[0].ID)

	theirs, err := ordersSvc.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = ordersSvc.Get(ctx, uuid.New(), placed.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
