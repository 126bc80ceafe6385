package report

import (
	"fmt"
	"log"
	"time"

	"paymgr/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDB(dsn string) *gorm.DB {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded payment report (month in YYYY-MM) and
// optionally lists the matching rows.
func RunReport(dsn, month string, list bool) {
	gdb := mustDB(dsn)

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	type monthRow struct {
		Total decimal.Decimal
		Cnt   int64
	}
	var row monthRow
	if err := gdb.Raw(`SELECT COALESCE(SUM(amount),0) AS total, COUNT(*) AS cnt FROM payments WHERE payment_date >= ? AND payment_date < ?`, start, end).Scan(&row).Error; err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Payment report for month=%s (UTC):\n", month)
	fmt.Printf("  records=%d total_amount=%s\n", row.Cnt, row.Total.StringFixed(2))

	if list {
		var rows []models.Payment
		if err := gdb.Where("payment_date >= ? AND payment_date < ?", start, end).Order("payment_date DESC, id ASC").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, r := range rows {
			ref := ""
			if r.Reference != nil {
				ref = *r.Reference
			}
			fmt.Printf("%d|%s|%s|%s|%s|%s\n", r.ID, r.Description, r.Category, r.Amount.StringFixed(2), ref, r.PaymentDate.Format(time.RFC3339))
		}
	}
}
