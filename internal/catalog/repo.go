package catalog

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/errors"
)

// Repo reads and mutates the medicine catalog. Mutations run on the caller's
// transaction handle so stock movement commits atomically with the order.
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

// FindByIDs loads the given medicines keyed by id. Missing ids are simply
// absent from the map; callers decide whether that is an error.
func (r *Repo) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Medicine, error) {
	var rows []models.Medicine
	if err := r.conn(tx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading medicines")
	}

	out := make(map[uuid.UUID]models.Medicine, len(rows))
	for _, m := range rows {
		out[m.ID] = m
	}
	return out, nil
}

// DecrementStock atomically reserves qty units. The guard in the WHERE clause
// makes concurrent reservations race-safe: whichever update runs second sees
// the reduced stock and matches zero rows.
func (r *Repo) DecrementStock(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Medicine{}).
		Where("id = ? AND stock >= ?", medicineID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "decrementing stock")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"medicine_id": medicineID.String()})
	}
	return nil
}

// RestockItems returns reserved units to the catalog after a cancellation.
func (r *Repo) RestockItems(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	for _, item := range items {
		res := r.conn(tx).WithContext(ctx).
			Model(&models.Medicine{}).
			Where("id = ?", item.MedicineID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Qty))
		if res.Error != nil {
			return errors.Wrap(errors.CodeDependency, res.Error, "restocking medicine")
		}
	}
	return nil
}
