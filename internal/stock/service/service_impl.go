package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/claimflow/internal/clock"
	"github.com/smallbiznis/claimflow/internal/observability/metrics"
	"github.com/smallbiznis/claimflow/internal/stock/domain"
	"github.com/smallbiznis/claimflow/pkg/db"
	"github.com/smallbiznis/claimflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.ClaimMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.ClaimMetrics

	entryRepo repository.Repository[domain.StockEntry]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("stock.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		entryRepo: repository.ProvideStore[domain.StockEntry](p.DB),
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	clone := *s
	clone.db = tx
	clone.entryRepo = s.entryRepo.WithTrx(tx)
	return &clone
}

// Apply adds each line's quantity to its item total, creating entries for
// item names seen for the first time.
func (s *Service) Apply(ctx context.Context, lines []domain.Line) error {
	ctx, flush := db.DeferUntilCommit(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.entryRepo.WithTrx(tx)
		now := s.clock.Now()

		for _, line := range lines {
			key := domain.ItemKey(line.ItemName)
			if key == "" {
				continue
			}

			entry, err := repo.FindOne(ctx, &domain.StockEntry{ItemKey: key})
			if err != nil {
				return err
			}

			if entry == nil {
				entry = &domain.StockEntry{
					ID:        s.genID.Generate(),
					ItemKey:   key,
					ItemName:  strings.TrimSpace(line.ItemName),
					Quantity:  line.Quantity,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := repo.Create(ctx, entry); err != nil {
					return err
				}
				continue
			}

			entry.Quantity += line.Quantity
			entry.UpdatedAt = now
			if err := repo.Save(ctx, entry); err != nil {
				return err
			}
		}

		applied := len(lines)
		db.OnCommit(ctx, func() {
			s.metrics.RecordStockAdjustment(metrics.StockDirectionApply, applied)
		})
		return nil
	})
	if err != nil {
		return err
	}
	flush()
	return nil
}

// Revert subtracts each line's quantity from its item total. Items with no
// entry are skipped. Totals are not floored at zero.
func (s *Service) Revert(ctx context.Context, lines []domain.Line) error {
	ctx, flush := db.DeferUntilCommit(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.entryRepo.WithTrx(tx)
		now := s.clock.Now()

		reverted := 0
		for _, line := range lines {
			key := domain.ItemKey(line.ItemName)
			if key == "" {
				continue
			}

			entry, err := repo.FindOne(ctx, &domain.StockEntry{ItemKey: key})
			if err != nil {
				return err
			}
			if entry == nil {
				s.log.Debug("skip revert for untracked item", zap.String("item_key", key))
				continue
			}

			entry.Quantity -= line.Quantity
			entry.UpdatedAt = now
			if err := repo.Save(ctx, entry); err != nil {
				return err
			}
			if entry.Quantity < 0 {
				s.log.Warn("stock quantity below zero",
					zap.String("item_key", key),
					zap.Int64("quantity", entry.Quantity),
				)
			}
			reverted++
		}

		db.OnCommit(ctx, func() {
			s.metrics.RecordStockAdjustment(metrics.StockDirectionRevert, reverted)
		})
		return nil
	})
	if err != nil {
		return err
	}
	flush()
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.StockEntry, error) {
	items, err := s.entryRepo.Find(ctx, nil, repository.WithOrder("item_key ASC"))
	if err != nil {
		return nil, err
	}

	entries := make([]domain.StockEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}
