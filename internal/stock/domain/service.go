package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	WithTx(tx *gorm.DB) Service
	Apply(ctx context.Context, lines []Line) error
	Revert(ctx context.Context, lines []Line) error
	List(ctx context.Context) ([]StockEntry, error)
}
