package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/pagination"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Medicine{},
		&models.Order{},
		&models.OrderLineItem{},
	))
	return db
}

func testAddress() types.Address {
	return types.Address{
		Street:     "14 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Phone:      "+919800000001",
	}
}

func seedTestOrder(t *testing.T, repo *Repo, buyerID, sellerID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                uuid.New(),
		BuyerID:           buyerID,
		Status:            enums.OrderStatusPending,
		DeliveryStatus:    enums.DeliveryStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		PaymentMethod:     enums.PaymentMethodCashOnDelivery,
		DeliveryAddress:   testAddress(),
		TotalPaise:        10000,
		EstimatedDelivery: createdAt.Add(120 * time.Hour),
		Version:           1,
		CreatedAt:         createdAt,
		Items: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				MedicineID:     uuid.New(),
				SellerID:       sellerID,
				Name:           "Paracetamol 500mg",
				UnitPricePaise: 5000,
				Qty:            2,
				TotalPaise:     10000,
			},
		},
	}
	require.NoError(t, repo.Create(context.Background(), nil, order))
	return order
}

func TestCreateAndFindByID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	order := seedTestOrder(t, repo, uuid.New(), uuid.New(), time.Now())

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(10000), got.Items[0].TotalPaise)
	assert.Equal(t, "Bengaluru", got.DeliveryAddress.City)

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, errors.CodeNotFound, typed.Code())
}

func TestFindByGatewayOrderRef(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	order := seedTestOrder(t, repo, uuid.New(), uuid.New(), time.Now())
	ref := "order_gw_abc"
	order.GatewayOrderRef = &ref
	require.NoError(t, repo.Update(ctx, nil, order))

	got, err := repo.FindByGatewayOrderRef(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = repo.FindByGatewayOrderRef(ctx, "order_missing")
	require.Error(t, err)
}

func TestUpdateVersionGuard(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	order := seedTestOrder(t, repo, uuid.New(), uuid.New(), time.Now())

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	first.Status = enums.OrderStatusConfirmed
	require.NoError(t, repo.Update(ctx, nil, first))

	second.Status = enums.OrderStatusProcessing
	err = repo.Update(ctx, nil, second)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, errors.CodeConflict, typed.Code())

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, got.Status)
}

func TestListByBuyer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	buyerID := uuid.New()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		seedTestOrder(t, repo, buyerID, uuid.New(), base.Add(time.Duration(i)*time.Minute))
	}
	seedTestOrder(t, repo, uuid.New(), uuid.New(), base)

	rows, _, err := repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, o := range rows {
		assert.Equal(t, buyerID, o.BuyerID)
		assert.NotEmpty(t, o.Items)
	}
	assert.True(t, rows[0].CreatedAt.After(rows[2].CreatedAt))
}

func TestListBySellerOnlyReturnsInvolvedOrders(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	sellerID := uuid.New()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	mine := seedTestOrder(t, repo, uuid.New(), sellerID, base)
	seedTestOrder(t, repo, uuid.New(), uuid.New(), base.Add(time.Minute))

	rows, _, err := repo.ListBySeller(ctx, sellerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)
}

func TestListAllWithStatusFilterAndCursor(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 4; i++ {
		seedTestOrder(t, repo, uuid.New(), uuid.New(), base.Add(time.Duration(i)*time.Minute))
	}
	cancelled := seedTestOrder(t, repo, uuid.New(), uuid.New(), base.Add(10*time.Minute))
	cancelled.Status = enums.OrderStatusCancelled
	require.NoError(t, repo.Update(ctx, nil, cancelled))

	t.Run("status filter", func(t *testing.T) {
		status := enums.OrderStatusCancelled
		rows, _, err := repo.ListAll(ctx, ListFilter{Status: &status}, pagination.Params{Limit: 10})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, cancelled.ID, rows[0].ID)
	})

	t.Run("cursor pages without overlap", func(t *testing.T) {
		first, next, err := repo.ListAll(ctx, ListFilter{}, pagination.Params{Limit: 2})
		require.NoError(t, err)
		require.Len(t, first, 2)
		require.NotEmpty(t, next)

		second, _, err := repo.ListAll(ctx, ListFilter{}, pagination.Params{Limit: 2, Cursor: next})
		require.NoError(t, err)
		require.Len(t, second, 2)
		for _, a := range first {
			for _, b := range second {
				assert.NotEqual(t, a.ID, b.ID)
			}
		}
	})
}

func TestBuyerNames(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Role: enums.UserRoleBuyer, Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, db.Create(&user).Error)

	names, err := repo.BuyerNames(ctx, []uuid.UUID{user.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "Asha", names[user.ID])
	assert.Len(t, names, 1)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo, err := NewRepo(db)
	require.NoError(t, err)

	base := time.Now()
	seedTestOrder(t, repo, uuid.New(), uuid.New(), base)
	seedTestOrder(t, repo, uuid.New(), uuid.New(), base)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[enums.OrderStatusPending])
}
