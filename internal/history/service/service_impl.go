package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/clock"
	"github.com/smallbiznis/claimflow/internal/history/domain"
	"github.com/smallbiznis/claimflow/internal/observability/metrics"
	"github.com/smallbiznis/claimflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Codec   domain.Codec          `optional:"true"`
	Metrics *metrics.ClaimMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	codec   domain.Codec
	metrics *metrics.ClaimMetrics

	entryRepo repository.Repository[domain.HistoryEntry]
}

func NewService(p Params) domain.Service {
	codec := p.Codec
	if codec == nil {
		codec = domain.JSONCodec{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("history.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		codec:   codec,
		metrics: p.Metrics,

		entryRepo: repository.ProvideStore[domain.HistoryEntry](p.DB),
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	clone := *s
	clone.db = tx
	clone.entryRepo = s.entryRepo.WithTrx(tx)
	return &clone
}

// Record appends an entry tagged with the status just entered. A snapshot
// that fails to encode is stored as a placeholder and does not fail the call.
func (s *Service) Record(ctx context.Context, claim claimdomain.Claim, from, to claimdomain.Status, comment string) (*domain.HistoryEntry, error) {
	payload, err := s.codec.Encode(domain.SnapshotOf(claim))
	if err != nil {
		s.log.Warn("snapshot encode failed, storing placeholder",
			zap.String("claim_id", claim.ID.String()),
			zap.String("to_status", to.String()),
			zap.Error(err),
		)
		s.metrics.RecordSnapshotFailure("encode")
		payload = []byte(domain.PlaceholderPayload)
	}

	entry := &domain.HistoryEntry{
		ID:         s.genID.Generate(),
		ClaimID:    claim.ID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    strings.TrimSpace(comment),
		Snapshot:   datatypes.JSON(payload),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// MostRecentFor returns the latest entry whose to_status is status, or nil.
// Snowflake ids break ties between entries sharing a timestamp.
func (s *Service) MostRecentFor(ctx context.Context, claimID snowflake.ID, status claimdomain.Status) (*domain.HistoryEntry, error) {
	return s.entryRepo.FindOne(ctx,
		&domain.HistoryEntry{ClaimID: claimID, ToStatus: status},
		repository.WithOrder("created_at DESC, id DESC"),
	)
}

func (s *Service) Decode(entry domain.HistoryEntry) (domain.Snapshot, error) {
	snapshot, err := s.codec.Decode(entry.Snapshot)
	if err != nil {
		s.metrics.RecordSnapshotFailure("decode")
		return domain.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Service) List(ctx context.Context, claimID snowflake.ID) ([]domain.HistoryEntry, error) {
	items, err := s.entryRepo.Find(ctx,
		&domain.HistoryEntry{ClaimID: claimID},
		repository.WithOrder("created_at ASC, id ASC"),
	)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}
