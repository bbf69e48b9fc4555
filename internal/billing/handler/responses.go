package handler

import "cityconnect/internal/billing/models"

// BillListResponse is the body of GET /bills.
type BillListResponse struct {
	Bills []*models.Bill `json:"bills"`
	Total int            `json:"total"`
}

// PaymentListResponse is the body of GET /payments.
type PaymentListResponse struct {
	Payments []*models.Payment `json:"payments"`
	Total    int               `json:"total"`
}
