package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/claimlock"
	"github.com/smallbiznis/claimflow/internal/clock"
	historydomain "github.com/smallbiznis/claimflow/internal/history/domain"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	obscontext "github.com/smallbiznis/claimflow/internal/observability/context"
	"github.com/smallbiznis/claimflow/internal/observability/logger"
	"github.com/smallbiznis/claimflow/internal/observability/metrics"
	"github.com/smallbiznis/claimflow/internal/reference"
	"github.com/smallbiznis/claimflow/pkg/db"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
	"github.com/smallbiznis/claimflow/pkg/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	commentClaimCreated = "Claim created"
	commentDraftUpdated = "Draft updated"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	RefGen     reference.Generator
	InvoiceSvc invoicedomain.Service
	HistorySvc historydomain.Service
	Locker     claimlock.Locker      `optional:"true"`
	Metrics    *metrics.ClaimMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	refGen  reference.Generator
	locker  claimlock.Locker
	metrics *metrics.ClaimMetrics
	tracer  trace.Tracer

	invoiceSvc invoicedomain.Service
	historySvc historydomain.Service

	claimrepo repository.Repository[domain.Claim]
	linerepo  repository.Repository[domain.ClaimLine]
}

func NewService(p Params) domain.Service {
	locker := p.Locker
	if locker == nil {
		locker = claimlock.New(claimlock.Params{Log: p.Log})
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("claim.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		refGen:  p.RefGen,
		locker:  locker,
		metrics: p.Metrics,
		tracer:  otel.Tracer("claimflow/claim"),

		invoiceSvc: p.InvoiceSvc,
		historySvc: p.HistorySvc,

		claimrepo: repository.ProvideStore[domain.Claim](p.DB),
		linerepo:  repository.ProvideStore[domain.ClaimLine](p.DB),
	}
}

// txScope binds every collaborator to one transaction.
type txScope struct {
	tx         *gorm.DB
	claimrepo  repository.Repository[domain.Claim]
	linerepo   repository.Repository[domain.ClaimLine]
	invoiceSvc invoicedomain.Service
	historySvc historydomain.Service
}

func (s *Service) scope(tx *gorm.DB) txScope {
	return txScope{
		tx:         tx,
		claimrepo:  s.claimrepo.WithTrx(tx),
		linerepo:   s.linerepo.WithTrx(tx),
		invoiceSvc: s.invoiceSvc.WithTx(tx),
		historySvc: s.historySvc.WithTx(tx),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClaimRequest) (domain.ClaimView, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}

	now := s.clock.Now()
	claim := domain.Claim{
		ID:           s.genID.Generate(),
		Reference:    s.refGen.ClaimReference(now),
		ClaimantName: strings.TrimSpace(req.ClaimantName),
		Description:  strings.TrimSpace(req.Description),
		Status:       domain.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	claim.Lines = s.buildLines(claim.ID, req.Items)
	claim.Total = domain.ComputeTotal(claim.Lines)
	span.SetAttributes(attribute.String("claim.id", claim.ID.String()))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := s.scope(tx)
		if err := sc.claimrepo.Create(ctx, &claim); err != nil {
			return err
		}
		if err := s.insertLines(ctx, sc, claim.Lines); err != nil {
			return err
		}
		_, err := sc.historySvc.Record(ctx, claim, domain.StatusDraft, domain.StatusDraft, commentClaimCreated)
		return err
	})
	if err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}

	s.log.Info("claim created",
		zap.String("claim_id", claim.ID.String()),
		zap.String("reference", claim.Reference),
		zap.Int("lines", len(claim.Lines)),
	)
	return domain.NewClaimView(claim), nil
}

// UpdateDraft replaces the editable fields of a DRAFT claim.
func (s *Service) UpdateDraft(ctx context.Context, id string, req domain.UpdateDraftRequest) (domain.ClaimView, error) {
	ctx, span := s.tracer.Start(ctx, "claim.UpdateDraft")
	defer span.End()

	claimID, err := parseID(id)
	if err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}
	if err := req.Validate(); err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}
	ctx = obscontext.WithClaimID(ctx, claimID.String())
	span.SetAttributes(attribute.String("claim.id", claimID.String()))

	unlock, err := s.locker.Lock(ctx, claimID.String())
	if err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}
	defer unlock()

	var claim *domain.Claim
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := s.scope(tx)

		claim, err = s.load(ctx, sc, claimID)
		if err != nil {
			return err
		}
		if claim.Status != domain.StatusDraft {
			return fmt.Errorf("%w: claim is %s, only DRAFT claims can be edited", domain.ErrInvalidState, claim.Status)
		}

		claim.ClaimantName = strings.TrimSpace(req.ClaimantName)
		claim.Description = strings.TrimSpace(req.Description)
		if err := s.replaceLines(ctx, sc, claim, s.buildLines(claim.ID, req.Items)); err != nil {
			return err
		}
		claim.UpdatedAt = s.clock.Now()
		if err := sc.claimrepo.Save(ctx, claim); err != nil {
			return err
		}

		_, err := sc.historySvc.Record(ctx, *claim, domain.StatusDraft, domain.StatusDraft, commentDraftUpdated)
		return err
	})
	if err != nil {
		return domain.ClaimView{}, s.fail(span, err)
	}

	return domain.NewClaimView(*claim), nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ClaimView, error) {
	claimID, err := parseID(id)
	if err != nil {
		return domain.ClaimView{}, err
	}

	claim, err := s.load(ctx, s.scope(s.db), claimID)
	if err != nil {
		return domain.ClaimView{}, err
	}
	return domain.NewClaimView(*claim), nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) (domain.ListClaimsResponse, error) {
	page = page.Normalize()

	total, err := s.claimrepo.Count(ctx, nil)
	if err != nil {
		return domain.ListClaimsResponse{}, err
	}

	items, err := s.claimrepo.Find(ctx, nil,
		repository.WithOrder("created_at DESC, id DESC"),
		repository.WithPage(page.Offset(), page.Limit()),
		repository.WithPreload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}),
	)
	if err != nil {
		return domain.ListClaimsResponse{}, err
	}

	views := make([]domain.ClaimView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, domain.NewClaimView(*item))
	}

	return domain.ListClaimsResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Content:  views,
	}, nil
}

// Transition moves a claim to target inside one transaction. Backward moves
// restore the snapshot recorded when the claim last entered target and unwind
// the invoice when leaving INVOICED. Entering INVOICED materializes the
// invoice. Every transition appends a history entry.
func (s *Service) Transition(ctx context.Context, id string, req domain.TransitionRequest) (domain.ClaimView, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Transition")
	defer span.End()

	claimID, err := parseID(id)
	if err != nil {
		return domain.ClaimView{}, s.failTransition(span, err)
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return domain.ClaimView{}, s.failTransition(span, domain.ErrInvalidComment)
	}
	target, err := domain.ParseStatus(req.TargetStatus)
	if err != nil {
		return domain.ClaimView{}, s.failTransition(span, err)
	}

	ctx = obscontext.WithClaimID(ctx, claimID.String())
	span.SetAttributes(
		attribute.String("claim.id", claimID.String()),
		attribute.String("claim.target_status", target.String()),
	)

	unlock, err := s.locker.Lock(ctx, claimID.String())
	if err != nil {
		return domain.ClaimView{}, s.failTransition(span, err)
	}
	defer unlock()

	var (
		claim   *domain.Claim
		current domain.Status
	)
	ctx, flush := db.DeferUntilCommit(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := s.scope(tx)

		claim, err = s.load(ctx, sc, claimID)
		if err != nil {
			return err
		}
		current = claim.Status

		if !domain.IsAllowed(current, target) {
			return fmt.Errorf("%w: cannot move claim from %s to %s", domain.ErrInvalidTransition, current, target)
		}

		if domain.IsBackward(current, target) {
			if err := s.restore(ctx, sc, claim, target); err != nil {
				return err
			}
			if current == domain.StatusInvoiced && claim.InvoiceID != nil {
				invoiceID := *claim.InvoiceID
				claim.InvoiceID = nil
				if err := sc.invoiceSvc.Remove(ctx, invoiceID); err != nil {
					return err
				}
			}
		}

		claim.Status = target
		claim.UpdatedAt = s.clock.Now()
		if err := sc.claimrepo.Save(ctx, claim); err != nil {
			return err
		}

		if target == domain.StatusInvoiced {
			invoice, err := sc.invoiceSvc.CreateFromClaim(ctx, *claim)
			if err != nil {
				return err
			}
			claim.InvoiceID = &invoice.ID
			if err := sc.claimrepo.Save(ctx, claim); err != nil {
				return err
			}
		}

		_, err := sc.historySvc.Record(ctx, *claim, current, target, comment)
		return err
	})
	if err != nil {
		return domain.ClaimView{}, s.failTransition(span, err)
	}
	flush()

	backward := domain.IsBackward(current, target)
	s.metrics.RecordTransition(current.String(), target.String(), backward)
	logger.WithContext(ctx, s.log).Info("claim transitioned",
		zap.String("from", current.String()),
		zap.String("to", target.String()),
		zap.Bool("backward", backward),
	)
	return domain.NewClaimView(*claim), nil
}

func (s *Service) History(ctx context.Context, id string) ([]domain.HistoryEntryView, error) {
	claimID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	exists, err := s.claimrepo.Count(ctx, &domain.Claim{ID: claimID})
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrNotFound
	}

	entries, err := s.historySvc.List(ctx, claimID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.HistoryEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, domain.HistoryEntryView{
			ID:         entry.ID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Comment:    entry.Comment,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return views, nil
}

// restore overwrites the editable fields with the latest snapshot taken on
// entry to target. A claim that never held target keeps its data; a snapshot
// that cannot be decoded aborts the transition.
func (s *Service) restore(ctx context.Context, sc txScope, claim *domain.Claim, target domain.Status) error {
	entry, err := sc.historySvc.MostRecentFor(ctx, claim.ID, target)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	snapshot, err := sc.historySvc.Decode(*entry)
	if err != nil {
		return fmt.Errorf("restore %s snapshot %s: %w", target, entry.ID, err)
	}

	claim.ClaimantName = snapshot.ClaimantName
	claim.Description = snapshot.Description
	return s.replaceLines(ctx, sc, claim, s.buildLines(claim.ID, snapshot.Lines()))
}

func (s *Service) load(ctx context.Context, sc txScope, id snowflake.ID) (*domain.Claim, error) {
	claim, err := sc.claimrepo.FindOne(ctx, &domain.Claim{ID: id})
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := sc.linerepo.Find(ctx,
		&domain.ClaimLine{ClaimID: id},
		repository.WithOrder("position ASC"),
	)
	if err != nil {
		return nil, err
	}
	claim.Lines = make([]domain.ClaimLine, 0, len(lines))
	for _, line := range lines {
		if line == nil {
			continue
		}
		claim.Lines = append(claim.Lines, *line)
	}
	return claim, nil
}

// replaceLines swaps the claim's lines and recomputes its total.
func (s *Service) replaceLines(ctx context.Context, sc txScope, claim *domain.Claim, lines []domain.ClaimLine) error {
	if err := sc.tx.WithContext(ctx).
		Where("claim_id = ?", claim.ID).
		Delete(&domain.ClaimLine{}).Error; err != nil {
		return err
	}
	if err := s.insertLines(ctx, sc, lines); err != nil {
		return err
	}
	claim.Lines = lines
	claim.Total = domain.ComputeTotal(lines)
	return nil
}

func (s *Service) insertLines(ctx context.Context, sc txScope, lines []domain.ClaimLine) error {
	rows := make([]*domain.ClaimLine, 0, len(lines))
	for i := range lines {
		rows = append(rows, &lines[i])
	}
	return sc.linerepo.BatchCreate(ctx, rows)
}

func (s *Service) buildLines(claimID snowflake.ID, items []domain.LineInput) []domain.ClaimLine {
	lines := make([]domain.ClaimLine, 0, len(items))
	for i, item := range items {
		lines = append(lines, domain.ClaimLine{
			ID:        s.genID.Generate(),
			ClaimID:   claimID,
			Position:  i,
			ItemName:  strings.TrimSpace(item.ItemName),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, errorReason(err))
	return err
}

func (s *Service) failTransition(span trace.Span, err error) error {
	s.metrics.RecordTransitionError(errorReason(err))
	return s.fail(span, err)
}

var reasonSentinels = []error{
	domain.ErrNotFound,
	domain.ErrInvalidID,
	domain.ErrInvalidComment,
	domain.ErrInvalidStatus,
	domain.ErrInvalidTransition,
	domain.ErrInvalidState,
	domain.ErrInvalidClaimantName,
	domain.ErrInvalidDescription,
	domain.ErrInvalidItemName,
	domain.ErrInvalidQuantity,
	domain.ErrInvalidUnitPrice,
	historydomain.ErrSnapshotDecode,
	claimlock.ErrLockBusy,
}

// errorReason maps err to a low-cardinality label.
func errorReason(err error) string {
	for _, sentinel := range reasonSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return metrics.ClassifyReason(err)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
