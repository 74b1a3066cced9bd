package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/claimflow/pkg/db/pagination"
)

// Service is the claim lifecycle engine.
type Service interface {
	Create(ctx context.Context, req CreateClaimRequest) (ClaimView, error)
	UpdateDraft(ctx context.Context, id string, req UpdateDraftRequest) (ClaimView, error)
	Get(ctx context.Context, id string) (ClaimView, error)
	List(ctx context.Context, page pagination.Pagination) (ListClaimsResponse, error)
	Transition(ctx context.Context, id string, req TransitionRequest) (ClaimView, error)
	History(ctx context.Context, id string) ([]HistoryEntryView, error)
}

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidComment      = errors.New("invalid_comment")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrInvalidState        = errors.New("invalid_state")
	ErrInvalidClaimantName = errors.New("invalid_claimant_name")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrInvalidItemName     = errors.New("invalid_item_name")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
)
