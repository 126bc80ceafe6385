package payments

import (
	"errors"
	"time"

	"paymgr/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store coordinates all reads and writes of payment records against one
// database handle. It holds no record state of its own: the database is the
// single source of truth and the sole arbiter of conflicting writes (via the
// dedup unique index and the per-row version column). Open the underlying
// *gorm.DB with TranslateError enabled so unique violations surface as
// gorm.ErrDuplicatedKey on both postgres and sqlite.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns every payment, most recent payment date first. Ties are broken
// by id so the order is stable across calls.
func (s *Store) List() ([]models.Payment, error) {
	var items []models.Payment
	if err := s.db.Order("payment_date DESC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get looks up a single payment by id.
func (s *Store) Get(id uint) (models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, err
	}
	return p, nil
}

// Create validates the candidate and persists it. When a reference is present
// an advisory pre-check rejects known duplicates early, but the unique index
// over (reference, category, amount) is the authoritative guard: a concurrent
// create racing past the pre-check is rejected by the database and reported as
// ErrDuplicate, never stored twice.
func (s *Store) Create(candidate models.Payment) (models.Payment, error) {
	if err := Validate(candidate); err != nil {
		return models.Payment{}, err
	}

	rec := models.Payment{
		Description: candidate.Description,
		Amount:      candidate.Amount.Round(2),
		PaymentDate: candidate.PaymentDate,
		Category:    candidate.Category,
		Reference:   candidate.Reference,
		Version:     1,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if rec.Reference != nil {
			var cnt int64
			if err := tx.Model(&models.Payment{}).
				Where("reference = ? AND category = ? AND amount = ?", *rec.Reference, rec.Category, rec.Amount).
				Count(&cnt).Error; err != nil {
				return err
			}
			if cnt > 0 {
				return ErrDuplicate
			}
		}
		rec.CreatedAt = time.Now()
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Payment{}, err
	}
	return rec, nil
}

// Edit replaces the mutable fields of the payment with the candidate's values.
// The candidate must carry the version the caller read; a stale version means
// another writer got there first and the caller's write is discarded with
// ErrConflict (or ErrNotFound if the record is gone entirely). Id and
// created_at are never touched.
func (s *Store) Edit(id uint, candidate models.Payment) (models.Payment, error) {
	if _, err := s.Get(id); err != nil {
		return models.Payment{}, err
	}
	if err := Validate(candidate); err != nil {
		return models.Payment{}, err
	}

	var updated models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND version = ?", id, candidate.Version).
			Updates(map[string]interface{}{
				"description":  candidate.Description,
				"amount":       candidate.Amount.Round(2),
				"payment_date": candidate.PaymentDate,
				"category":     candidate.Category,
				"reference":    candidate.Reference,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Stale version, or the record was deleted underneath us.
			var cnt int64
			if err := tx.Model(&models.Payment{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		return models.Payment{}, err
	}
	return updated, nil
}

// Delete removes a payment by id. Deleting an id that does not exist is not an
// error; the bool reports whether a row was actually removed.
func (s *Store) Delete(id uint) (bool, error) {
	res := s.db.Delete(&models.Payment{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteMany removes every payment whose id is in ids, in a single
// transaction, and returns how many were removed. Ids that match nothing are
// ignored; an empty set is a no-op.
func (s *Store) DeleteMany(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&models.Payment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CategoryTotal is one row of the category summary.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// SummaryByCategory sums payment amounts per category.
func (s *Store) SummaryByCategory() ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := s.db.Model(&models.Payment{}).
		Select("category, SUM(amount) AS total, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
