package orders

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/pagination"
)

// Repo persists orders and serves the role-scoped projections.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) (*Repo, error) {
	if db == nil {
		return nil, stderrors.New("db is required")
	}
	return &Repo{db: db}, nil
}

func (r *Repo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the order and its line items in one shot.
func (r *Repo) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := r.conn(tx).WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating order")
	}
	return nil
}

// FindByID loads the order with its line items.
func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

// FindByGatewayOrderRef resolves the checkout callback to its order.
func (r *Repo) FindByGatewayOrderRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "gateway_order_ref = ?", ref).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found for gateway reference")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order by gateway reference")
	}
	return &order, nil
}

// Update writes the order back guarded by its version counter. A zero-row
// update means a concurrent writer won; callers get CodeConflict and retry.
func (r *Repo) Update(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	expected := order.Version
	order.Version++

	res := r.conn(tx).WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, expected).
		Select(
			"status", "delivery_status", "payment_status",
			"gateway_order_ref", "gateway_payment_ref",
			"tracking_number", "cancel_reason",
			"delivered_at", "cancelled_at", "version", "updated_at",
		).
		Updates(order)
	if res.Error != nil {
		order.Version = expected
		return errors.Wrap(errors.CodeDependency, res.Error, "updating order")
	}
	if res.RowsAffected == 0 {
		order.Version = expected
		return errors.New(errors.CodeConflict, "order was modified concurrently")
	}
	return nil
}

// ListByBuyer returns the buyer's own orders, newest first.
func (r *Repo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID)
	return r.listPage(ctx, query, params)
}

// ListBySeller returns orders containing at least one of the seller's line
// items, newest first.
func (r *Repo) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("id IN (?)", r.db.
			Model(&models.OrderLineItem{}).
			Select("order_id").
			Where("seller_id = ?", sellerID))
	return r.listPage(ctx, query, params)
}

// ListAll is the admin projection, optionally narrowed by status.
func (r *Repo) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return r.listPage(ctx, query, params)
}

func (r *Repo) listPage(ctx context.Context, query *gorm.DB, params pagination.Params) ([]models.Order, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, "", errors.Wrap(errors.CodeDependency, err, "listing orders")
	}

	nextCursor := ""
	if len(rows) == limit {
		rows = rows[:limit-1]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// BuyerNames resolves display names for admin summaries.
func (r *Repo) BuyerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading buyer names")
	}
	out := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Name
	}
	return out, nil
}

// CountByStatus backs the admin dashboard summary.
func (r *Repo) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	type row struct {
		Status enums.OrderStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "counting orders by status")
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
