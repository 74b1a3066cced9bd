package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// StockEntry is the running quantity for one item name. Quantity may go
// negative when more is reverted than was ever applied.
type StockEntry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ItemKey   string       `gorm:"column:item_key;type:varchar(255);not null;uniqueIndex" json:"-"`
	ItemName  string       `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity  int64        `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (StockEntry) TableName() string { return "stock_entries" }

// Line is one item movement handed to the ledger.
type Line struct {
	ItemName string
	Quantity int64
}

// ItemKey normalizes an item name for case-insensitive matching.
func ItemKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
