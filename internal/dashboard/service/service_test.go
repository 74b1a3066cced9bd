package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	stockdomain "github.com/smallbiznis/claimflow/internal/stock/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&claimdomain.Claim{},
		&invoicedomain.Invoice{},
		&stockdomain.StockEntry{},
	))
	return db
}

func TestMetricsOnEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop()})

	m, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, m.TotalClaims)
	assert.Zero(t, m.PendingClaims)
	assert.True(t, m.TotalClaimValue.IsZero())
	assert.Zero(t, m.InvoicesAwaitingApproval)
	assert.Zero(t, m.InvoiceApprovalRate)
	assert.Zero(t, m.StockTracked)
}

func TestMetricsAggregates(t *testing.T) {
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	claims := []struct {
		status claimdomain.Status
		total  string
	}{
		{claimdomain.StatusDraft, "10.00"},
		{claimdomain.StatusSubmitted, "5.50"},
		{claimdomain.StatusUnderReview, "4.50"},
		{claimdomain.StatusApproved, "30.00"},
		{claimdomain.StatusInvoiced, "20.00"},
	}
	for i, c := range claims {
		require.NoError(t, db.Create(&claimdomain.Claim{
			ID:           node.Generate(),
			Reference:    "CLM-2024080100000" + string(rune('0'+i)),
			ClaimantName: "Alice",
			Status:       c.status,
			Total:        decimal.RequireFromString(c.total),
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error)
	}

	invoiceStatuses := []invoicedomain.InvoiceStatus{
		invoicedomain.InvoiceStatusDraft,
		invoicedomain.InvoiceStatusApproved,
		invoicedomain.InvoiceStatusApproved,
	}
	for i, status := range invoiceStatuses {
		require.NoError(t, db.Create(&invoicedomain.Invoice{
			ID:            node.Generate(),
			InvoiceNumber: "INV-0000000" + string(rune('0'+i)),
			ClaimID:       node.Generate(),
			Status:        status,
			Subtotal:      decimal.Zero,
			Tax:           decimal.Zero,
			Total:         decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error)
	}

	for _, name := range []string{"pen", "paper"} {
		require.NoError(t, db.Create(&stockdomain.StockEntry{
			ID:        node.Generate(),
			ItemKey:   name,
			ItemName:  name,
			Quantity:  1,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error)
	}

	svc := NewService(Params{DB: db, Log: zap.NewNop()})
	m, err := svc.Metrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), m.TotalClaims)
	assert.Equal(t, int64(3), m.PendingClaims)
	assert.True(t, decimal.RequireFromString("70.00").Equal(m.TotalClaimValue), m.TotalClaimValue.String())
	assert.Equal(t, int64(1), m.InvoicesAwaitingApproval)
	assert.Equal(t, 67, m.InvoiceApprovalRate)
	assert.Equal(t, int64(2), m.StockTracked)
}

func TestApprovalRate(t *testing.T) {
	assert.Equal(t, 0, approvalRate(0, 0))
	assert.Equal(t, 50, approvalRate(1, 2))
	assert.Equal(t, 33, approvalRate(1, 3))
	assert.Equal(t, 100, approvalRate(4, 4))
}
