package handler

import (
	"strings"
	"time"

	"cityconnect/internal/billing/models"
	dErrors "cityconnect/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// CreateBillRequest is the body of POST /bills.
// Amount is in minor currency units; due_date is a calendar date or an RFC 3339 timestamp.
type CreateBillRequest struct {
	OwnerID    string `json:"owner_id"`
	BillType   string `json:"bill_type"`
	Amount     int64  `json:"amount"`
	DueDate    string `json:"due_date"`
	BillNumber string `json:"bill_number"`
	Period     string `json:"period"`

	billType models.BillType
	dueDate  time.Time
}

func (r *CreateBillRequest) Normalize() {
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	r.DueDate = strings.TrimSpace(r.DueDate)
	r.BillNumber = strings.TrimSpace(r.BillNumber)
	r.Period = strings.TrimSpace(r.Period)
}

// Validate implements httputil.Validatable.
func (r *CreateBillRequest) Validate() error {
	switch {
	case r.OwnerID == "":
		return dErrors.New(dErrors.CodeValidation, "owner_id is required")
	case r.Amount < 0:
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	case r.BillNumber == "":
		return dErrors.New(dErrors.CodeValidation, "bill_number is required")
	case r.Period == "":
		return dErrors.New(dErrors.CodeValidation, "period is required")
	case r.DueDate == "":
		return dErrors.New(dErrors.CodeValidation, "due_date is required")
	}
	billType, err := models.ParseBillType(r.BillType)
	if err != nil {
		return err
	}
	r.billType = billType

	dueDate, err := parseDate(r.DueDate)
	if err != nil {
		return err
	}
	r.dueDate = dueDate
	return nil
}

func (r *CreateBillRequest) ToDraft() models.BillDraft {
	return models.BillDraft{
		OwnerID:    r.OwnerID,
		BillType:   r.billType,
		Amount:     r.Amount,
		DueDate:    r.dueDate,
		BillNumber: r.BillNumber,
		Period:     r.Period,
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "due_date must be YYYY-MM-DD or RFC 3339")
}
