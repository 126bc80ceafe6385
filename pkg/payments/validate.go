package payments

import (
	"strings"
	"time"
	"unicode/utf8"

	"paymgr/models"
)

const (
	maxDescriptionLen = 200
	maxReferenceLen   = 100
)

// Validate checks a candidate payment against the field and business rules.
// All checks run; every violation is collected so the caller can report them
// together. A nil return means the candidate is acceptable.
func Validate(candidate models.Payment) error {
	fields := map[string]string{}

	if strings.TrimSpace(candidate.Description) == "" {
		fields["description"] = "description is required"
	} else if utf8.RuneCountInString(candidate.Description) > maxDescriptionLen {
		fields["description"] = "description must be at most 200 characters"
	}

	if strings.TrimSpace(candidate.Category) == "" {
		fields["category"] = "category is required"
	}

	// Check the canonical 2-digit value: a sub-cent amount like 0.004 would
	// otherwise pass here and be stored as 0.00.
	if !candidate.Amount.Round(2).IsPositive() {
		fields["amount"] = "amount must be greater than 0"
	}

	if candidate.PaymentDate.IsZero() {
		fields["payment_date"] = "payment date is required"
	} else if candidate.PaymentDate.After(time.Now()) {
		fields["payment_date"] = "payment date cannot be in the future"
	}

	if candidate.Reference != nil && utf8.RuneCountInString(*candidate.Reference) > maxReferenceLen {
		fields["reference"] = "reference must be at most 100 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
