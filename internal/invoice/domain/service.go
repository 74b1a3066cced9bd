package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceResponse struct {
	pagination.PageInfo
	Content []Invoice `json:"content"`
}

type Service interface {
	WithTx(tx *gorm.DB) Service
	CreateFromClaim(ctx context.Context, claim claimdomain.Claim) (Invoice, error)
	Approve(ctx context.Context, id string) (Invoice, error)
	Remove(ctx context.Context, id snowflake.ID) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, page pagination.Pagination) (ListInvoiceResponse, error)
}

var (
	ErrNotFound  = errors.New("not_found")
	ErrInvalidID = errors.New("invalid_id")
)
