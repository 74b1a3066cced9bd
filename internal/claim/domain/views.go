package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
)

type LineView struct {
	ItemName  string          `json:"item_name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// ClaimView is the caller-facing projection of a claim, including the
// statuses it can move to next.
type ClaimView struct {
	ID                 snowflake.ID    `json:"id"`
	Reference          string          `json:"reference"`
	ClaimantName       string          `json:"claimant_name"`
	Description        string          `json:"description"`
	Status             Status          `json:"status"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []LineView      `json:"items"`
	AllowedTransitions []Status        `json:"allowed_transitions"`
	InvoiceID          *snowflake.ID   `json:"invoice_id"`
}

type HistoryEntryView struct {
	ID         snowflake.ID `json:"id"`
	FromStatus Status       `json:"from_status"`
	ToStatus   Status       `json:"to_status"`
	Comment    string       `json:"comment"`
	CreatedAt  time.Time    `json:"created_at"`
}

type ListClaimsResponse struct {
	pagination.PageInfo
	Content []ClaimView `json:"content"`
}

func NewClaimView(c Claim) ClaimView {
	items := make([]LineView, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, LineView{
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal(),
		})
	}
	return ClaimView{
		ID:                 c.ID,
		Reference:          c.Reference,
		ClaimantName:       c.ClaimantName,
		Description:        c.Description,
		Status:             c.Status,
		TotalAmount:        c.Total,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Items:              items,
		AllowedTransitions: AllowedTargets(c.Status),
		InvoiceID:          c.InvoiceID,
	}
}
