package service

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	dashboarddomain "github.com/smallbiznis/claimflow/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	stockdomain "github.com/smallbiznis/claimflow/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var pendingStatuses = []claimdomain.Status{
	claimdomain.StatusDraft,
	claimdomain.StatusSubmitted,
	claimdomain.StatusUnderReview,
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) dashboarddomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dashboard.service"),
	}
}

type claimTotalsRow struct {
	TotalClaims   int64           `gorm:"column:total_claims"`
	PendingClaims int64           `gorm:"column:pending_claims"`
	TotalValue    decimal.Decimal `gorm:"column:total_value"`
}

type invoiceStatusRow struct {
	Status invoicedomain.InvoiceStatus `gorm:"column:status"`
	Count  int64                       `gorm:"column:count"`
}

func (s *Service) Metrics(ctx context.Context) (dashboarddomain.Metrics, error) {
	db := s.db.WithContext(ctx)

	var totals claimTotalsRow
	if err := db.Model(&claimdomain.Claim{}).
		Select(
			"COUNT(*) AS total_claims, "+
				"COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS pending_claims, "+
				"COALESCE(SUM(total), 0) AS total_value",
			pendingStatuses,
		).
		Scan(&totals).Error; err != nil {
		return dashboarddomain.Metrics{}, err
	}

	var statusRows []invoiceStatusRow
	if err := db.Model(&invoicedomain.Invoice{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return dashboarddomain.Metrics{}, err
	}

	var drafts, approved int64
	for _, row := range statusRows {
		switch row.Status {
		case invoicedomain.InvoiceStatusDraft:
			drafts = row.Count
		case invoicedomain.InvoiceStatusApproved:
			approved = row.Count
		}
	}

	var stockTracked int64
	if err := db.Model(&stockdomain.StockEntry{}).Count(&stockTracked).Error; err != nil {
		return dashboarddomain.Metrics{}, err
	}

	return dashboarddomain.Metrics{
		TotalClaims:              totals.TotalClaims,
		PendingClaims:            totals.PendingClaims,
		TotalClaimValue:          totals.TotalValue,
		InvoicesAwaitingApproval: drafts,
		InvoiceApprovalRate:      approvalRate(approved, drafts+approved),
		StockTracked:             stockTracked,
	}, nil
}

// approvalRate is the rounded percentage of approved invoices.
func approvalRate(approved, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(approved) * 100 / float64(total)))
}
