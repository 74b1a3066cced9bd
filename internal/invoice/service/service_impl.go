package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/claimlock"
	"github.com/smallbiznis/claimflow/internal/clock"
	"github.com/smallbiznis/claimflow/internal/config"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	"github.com/smallbiznis/claimflow/internal/observability/metrics"
	"github.com/smallbiznis/claimflow/internal/reference"
	stockdomain "github.com/smallbiznis/claimflow/internal/stock/domain"
	"github.com/smallbiznis/claimflow/pkg/db"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
	"github.com/smallbiznis/claimflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	eventCreated  = "created"
	eventApproved = "approved"
	eventRemoved  = "removed"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	RefGen    reference.Generator
	StockSvc  stockdomain.Service
	Locker    claimlock.Locker              `optional:"true"`
	Lifecycle *config.LifecycleConfigHolder `optional:"true"`
	Metrics   *metrics.ClaimMetrics         `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	refGen    reference.Generator
	stockSvc  stockdomain.Service
	locker    claimlock.Locker
	lifecycle *config.LifecycleConfigHolder
	metrics   *metrics.ClaimMetrics

	invoicerepo repository.Repository[invoicedomain.Invoice]
	itemrepo    repository.Repository[invoicedomain.InvoiceItem]
}

func NewService(p ServiceParam) invoicedomain.Service {
	locker := p.Locker
	if locker == nil {
		locker = claimlock.New(claimlock.Params{Log: p.Log})
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		refGen:    p.RefGen,
		stockSvc:  p.StockSvc,
		locker:    locker,
		lifecycle: p.Lifecycle,
		metrics:   p.Metrics,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		itemrepo:    repository.ProvideStore[invoicedomain.InvoiceItem](p.DB),
	}
}

func (s *Service) WithTx(tx *gorm.DB) invoicedomain.Service {
	clone := *s
	clone.db = tx
	clone.stockSvc = s.stockSvc.WithTx(tx)
	clone.invoicerepo = s.invoicerepo.WithTrx(tx)
	clone.itemrepo = s.itemrepo.WithTrx(tx)
	return &clone
}

// CreateFromClaim returns the claim's existing invoice unchanged, or builds a
// new DRAFT invoice from a copy of the claim's current lines.
func (s *Service) CreateFromClaim(ctx context.Context, claim claimdomain.Claim) (invoicedomain.Invoice, error) {
	var (
		result  invoicedomain.Invoice
		created bool
	)
	ctx, flush := db.DeferUntilCommit(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSvc := s.WithTx(tx).(*Service)

		existing, err := txSvc.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ClaimID: claim.ID})
		if err != nil {
			return err
		}
		if existing != nil {
			if err := txSvc.loadItems(ctx, existing); err != nil {
				return err
			}
			result = *existing
			return nil
		}

		invoice := s.buildInvoice(claim)
		if err := txSvc.invoicerepo.Create(ctx, &invoice); err != nil {
			return err
		}

		items := make([]*invoicedomain.InvoiceItem, 0, len(invoice.Items))
		for i := range invoice.Items {
			items = append(items, &invoice.Items[i])
		}
		if err := txSvc.itemrepo.BatchCreate(ctx, items); err != nil {
			return err
		}

		result = invoice
		created = true
		db.OnCommit(ctx, func() {
			s.metrics.RecordInvoiceEvent(eventCreated)
		})
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	flush()

	if created {
		s.log.Info("invoice created",
			zap.String("invoice_id", result.ID.String()),
			zap.String("invoice_number", result.InvoiceNumber),
			zap.String("claim_id", claim.ID.String()),
		)
	}
	return result, nil
}

func (s *Service) buildInvoice(claim claimdomain.Claim) invoicedomain.Invoice {
	now := s.clock.Now()
	invoiceID := s.genID.Generate()

	items := make([]invoicedomain.InvoiceItem, 0, len(claim.Lines))
	subtotal := decimal.Zero
	for i, line := range claim.Lines {
		lineTotal := line.LineTotal()
		subtotal = subtotal.Add(lineTotal)
		items = append(items, invoicedomain.InvoiceItem{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Position:  i,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	tax := subtotal.Mul(s.taxRate()).Round(4)

	return invoicedomain.Invoice{
		ID:            invoiceID,
		InvoiceNumber: s.refGen.InvoiceReference(),
		ClaimID:       claim.ID,
		Status:        invoicedomain.InvoiceStatusDraft,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal.Add(tax),
		StockApplied:  false,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
}

func (s *Service) taxRate() decimal.Decimal {
	return decimal.NewFromFloat(s.lifecycle.Get().TaxRate)
}

// Approve marks the invoice APPROVED. Stock is applied only the first time.
// The owning claim stays locked for the whole approval.
func (s *Service) Approve(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	current, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: invoiceID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if current == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	unlock, err := s.locker.Lock(ctx, current.ClaimID.String())
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	defer unlock()

	var result invoicedomain.Invoice
	ctx, flush := db.DeferUntilCommit(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSvc := s.WithTx(tx).(*Service)

		invoice, err := txSvc.findWithItems(ctx, invoiceID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice.Status = invoicedomain.InvoiceStatusApproved
		invoice.ApprovedAt = &now
		invoice.UpdatedAt = now

		if !invoice.StockApplied {
			if err := txSvc.stockSvc.Apply(ctx, stockLines(invoice.Items)); err != nil {
				return err
			}
			invoice.StockApplied = true
		}

		if err := txSvc.invoicerepo.Save(ctx, invoice); err != nil {
			return err
		}
		result = *invoice
		db.OnCommit(ctx, func() {
			s.metrics.RecordInvoiceEvent(eventApproved)
		})
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	flush()

	s.log.Info("invoice approved",
		zap.String("invoice_id", result.ID.String()),
		zap.Bool("stock_applied", result.StockApplied),
	)
	return result, nil
}

// Remove deletes the invoice and its items, reverting stock first when it had
// been applied. An id that does not resolve is a no-op.
func (s *Service) Remove(ctx context.Context, id snowflake.ID) error {
	ctx, flush := db.DeferUntilCommit(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSvc := s.WithTx(tx).(*Service)

		invoice, err := txSvc.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: id})
		if err != nil {
			return err
		}
		if invoice == nil {
			return nil
		}
		if err := txSvc.loadItems(ctx, invoice); err != nil {
			return err
		}

		if invoice.StockApplied {
			if err := txSvc.stockSvc.Revert(ctx, stockLines(invoice.Items)); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).
			Where("invoice_id = ?", invoice.ID).
			Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := txSvc.invoicerepo.Delete(ctx, invoice.ID); err != nil {
			return err
		}

		db.OnCommit(ctx, func() {
			s.metrics.RecordInvoiceEvent(eventRemoved)
		})
		return nil
	})
	if err != nil {
		return err
	}
	flush()
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.findWithItems(ctx, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) (invoicedomain.ListInvoiceResponse, error) {
	page = page.Normalize()

	total, err := s.invoicerepo.Count(ctx, nil)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, err := s.invoicerepo.Find(ctx, nil,
		repository.WithOrder("created_at DESC, id DESC"),
		repository.WithPage(page.Offset(), page.Limit()),
		repository.WithPreload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}),
	)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{
		PageInfo: pagination.BuildPageInfo(total, page),
		Content:  invoices,
	}, nil
}

func (s *Service) findWithItems(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: id})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	if err := s.loadItems(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) loadItems(ctx context.Context, invoice *invoicedomain.Invoice) error {
	items, err := s.itemrepo.Find(ctx,
		&invoicedomain.InvoiceItem{InvoiceID: invoice.ID},
		repository.WithOrder("position ASC"),
	)
	if err != nil {
		return err
	}

	invoice.Items = make([]invoicedomain.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoice.Items = append(invoice.Items, *item)
	}
	return nil
}

func stockLines(items []invoicedomain.InvoiceItem) []stockdomain.Line {
	lines := make([]stockdomain.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, stockdomain.Line{
			ItemName: item.ItemName,
			Quantity: item.Quantity,
		})
	}
	return lines
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}
