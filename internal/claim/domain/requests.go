package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 2000

type LineInput struct {
	ItemName  string          `json:"item_name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateClaimRequest struct {
	ClaimantName string      `json:"claimant_name"`
	Description  string      `json:"description"`
	Items        []LineInput `json:"items"`
}

type UpdateDraftRequest = CreateClaimRequest

type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	Comment      string `json:"comment"`
}

// Validate checks the editable fields of a claim.
func (r CreateClaimRequest) Validate() error {
	if strings.TrimSpace(r.ClaimantName) == "" {
		return ErrInvalidClaimantName
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.ItemName) == "" {
			return ErrInvalidItemName
		}
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return ErrInvalidUnitPrice
		}
	}
	return nil
}
