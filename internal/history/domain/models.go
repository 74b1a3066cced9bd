package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PlaceholderPayload is stored when a snapshot cannot be encoded.
const PlaceholderPayload = "{}"

// HistoryEntry is one append-only transition record. Snapshot holds the
// claim's editable fields as they were right after the transition.
type HistoryEntry struct {
	ID         snowflake.ID       `gorm:"primaryKey" json:"id"`
	ClaimID    snowflake.ID       `gorm:"not null;index:idx_claim_status_history_lookup,priority:1" json:"claim_id"`
	FromStatus claimdomain.Status `gorm:"type:varchar(32);not null" json:"from_status"`
	ToStatus   claimdomain.Status `gorm:"type:varchar(32);not null;index:idx_claim_status_history_lookup,priority:2" json:"to_status"`
	Comment    string             `gorm:"type:text;not null" json:"comment"`
	Snapshot   datatypes.JSON     `gorm:"not null" json:"-"`
	CreatedAt  time.Time          `gorm:"not null" json:"created_at"`
}

func (HistoryEntry) TableName() string { return "claim_status_history" }

// Snapshot is the restorable part of a claim.
type Snapshot struct {
	ClaimantName string         `json:"claimant_name"`
	Description  string         `json:"description"`
	Items        []SnapshotItem `json:"items"`
}

type SnapshotItem struct {
	ItemName  string          `json:"item_name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SnapshotOf captures the editable fields of claim.
func SnapshotOf(claim claimdomain.Claim) Snapshot {
	items := make([]SnapshotItem, 0, len(claim.Lines))
	for _, line := range claim.Lines {
		items = append(items, SnapshotItem{
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return Snapshot{
		ClaimantName: claim.ClaimantName,
		Description:  claim.Description,
		Items:        items,
	}
}

// Lines converts the snapshot items back into claim line inputs.
func (s Snapshot) Lines() []claimdomain.LineInput {
	lines := make([]claimdomain.LineInput, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, claimdomain.LineInput{
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}
