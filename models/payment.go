package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a single recorded payment. Reference is optional; when present,
// (reference, category, amount) must be unique so the same payment cannot be
// submitted twice. Rows with a NULL reference are exempt from the index.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Description string          `gorm:"size:200;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null;uniqueIndex:idx_payments_dedup,priority:3" json:"amount"`
	PaymentDate time.Time       `gorm:"not null;index" json:"payment_date"`
	Category    string          `gorm:"size:64;not null;uniqueIndex:idx_payments_dedup,priority:2" json:"category"`
	Reference   *string         `gorm:"size:100;uniqueIndex:idx_payments_dedup,priority:1" json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	// Version is the optimistic-concurrency token. Every successful update
	// increments it; an update carrying a stale version matches no row.
	Version int64 `gorm:"not null;default:1" json:"version"`
}
