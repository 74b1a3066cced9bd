// Package domain contains persistence models for claim invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"
	InvoiceStatusApproved InvoiceStatus = "APPROVED"
)

// Invoice is derived once from a claim. StockApplied is a one-way latch set
// when approval first pushes the items into the stock ledger.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"invoice_number"`
	ClaimID       snowflake.ID    `gorm:"not null;uniqueIndex" json:"claim_id"`
	Status        InvoiceStatus   `gorm:"type:varchar(32);not null;default:'DRAFT'" json:"status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	Tax           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	StockApplied  bool            `gorm:"not null;default:false" json:"stock_applied"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a copy of a claim line taken when the invoice was created.
type InvoiceItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position  int             `gorm:"not null" json:"position"`
	ItemName  string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
