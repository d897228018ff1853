package cart

import (
	"context"
	"testing"

	"github.com/aspida-health/aspida-backend/internal/catalog"
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

type cartFixture struct {
	svc    *Service
	client *db.Client
}

func setupCartTestDB(t *testing.T) *cartFixture {
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
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	client := db.NewWithConn(conn)
	svc, err := NewService(client, catalog.NewRepository(conn))
	require.NoError(t, err)
	return &cartFixture{svc: svc, client: client}
}

func (f *cartFixture) seedProduct(t *testing.T, name, price string, stock int, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Slug:         name,
		CategoryID:   uuid.New(),
		BasePrice:    decimal.RequireFromString(price),
		SellingPrice: decimal.RequireFromString(price),
		Stock:        stock,
		IsActive:     active,
	}
	require.NoError(t, f.client.DB().Create(product).Error)
	return product
}

func TestAddCreatesLineAndTotals(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "paracetamol", "4.50", 20, true)

	view, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Items[0].LineTotal.Equal(decimal.RequireFromString("9.00")))
	assert.True(t, view.Total.Equal(decimal.RequireFromString("9.00")))
}

func TestAddSameProductIncrementsLine(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "ibuprofen", "3.00", 20, true)

	_, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	view, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
}

func TestAddRecoversFromConcurrentLineInsert(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "antacid", "2.00", 20, true)

	// a rival request inserts the same line between our lookup and create
	conn := f.client.DB()
	fired := false
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test_rival_line", func(tx *gorm.DB) {
		if fired || tx.Statement == nil || tx.Statement.Table != "cart_items" {
			return
		}
		fired = true
		_, err := tx.Statement.ConnPool.ExecContext(ctx,
			`INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID.String(), product.ID.String(), 1)
		require.NoError(t, err)
	}))
	defer func() {
		require.NoError(t, conn.Callback().Create().Remove("test_rival_line"))
	}()

	view, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err, "a lost race on the cart line must retry, not fail")
	require.True(t, fired)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestAddUnknownOrInactiveProduct(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	inactive := f.seedProduct(t, "retired", "2.00", 5, false)

	_, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: uuid.New(), Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = f.svc.Add(ctx, userID, AddItemRequest{ProductID: inactive.ID, Quantity: 1})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateQuantityReplacesValue(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "vitamin-c", "6.25", 20, true)

	_, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	view, err := f.svc.UpdateQuantity(ctx, userID, product.ID, UpdateItemRequest{Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("12.50")))
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	f := setupCartTestDB(t)

	_, err := f.svc.UpdateQuantity(context.Background(), uuid.New(), uuid.New(), UpdateItemRequest{Quantity: 2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveAndClear(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	first := f.seedProduct(t, "bandages", "1.50", 20, true)
	second := f.seedProduct(t, "gauze", "2.50", 20, true)

	_, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: first.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, userID, AddItemRequest{ProductID: second.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := f.svc.Remove(ctx, userID, first.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, second.ID, view.Items[0].ProductID)

	require.NoError(t, f.svc.Clear(ctx, userID))
	view, err = f.svc.View(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
}

func TestViewReflectsLivePrice(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "syrup", "8.00", 20, true)

	_, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	// reprice the catalog listing, the cart line follows
	require.NoError(t, f.client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("selling_price", "10.00").Error)

	view, err := f.svc.View(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("20.00")))
}

func TestStockFlagOnLines(t *testing.T) {
	f := setupCartTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, "lozenges", "3.00", 1, true)

	view, err := f.svc.Add(ctx, userID, AddItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.False(t, view.Items[0].InStock)
}
