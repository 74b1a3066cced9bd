package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Metrics summarizes claims, invoices and stock for the dashboard.
type Metrics struct {
	TotalClaims              int64           `json:"total_claims"`
	PendingClaims            int64           `json:"pending_claims"`
	TotalClaimValue          decimal.Decimal `json:"total_claim_value"`
	InvoicesAwaitingApproval int64           `json:"invoices_awaiting_approval"`
	InvoiceApprovalRate      int             `json:"invoice_approval_rate"`
	StockTracked             int64           `json:"stock_tracked"`
}

type Service interface {
	Metrics(ctx context.Context) (Metrics, error)
}
