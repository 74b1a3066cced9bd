package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Claim struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"reference"`
	ClaimantName string          `gorm:"type:varchar(255);not null" json:"claimant_name"`
	Description  string          `gorm:"type:text" json:"description"`
	Status       Status          `gorm:"type:varchar(32);not null;index" json:"status"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	InvoiceID    *snowflake.ID   `gorm:"index" json:"invoice_id,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`

	Lines []ClaimLine `gorm:"foreignKey:ClaimID" json:"lines"`
}

func (Claim) TableName() string { return "claims" }

type ClaimLine struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClaimID   snowflake.ID    `gorm:"not null;index" json:"claim_id"`
	Position  int             `gorm:"not null" json:"position"`
	ItemName  string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
}

func (ClaimLine) TableName() string { return "claim_lines" }

func (l ClaimLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// ComputeTotal sums quantity x unit price over lines.
func ComputeTotal(lines []ClaimLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}
