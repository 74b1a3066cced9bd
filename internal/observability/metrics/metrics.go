package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/claimflow/pkg/db"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

const (
	StockDirectionApply  = "apply"
	StockDirectionRevert = "revert"
)

// Config configures the metrics provider and metric labels.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// ClaimMetrics captures lifecycle health signals for the claim engine.
type ClaimMetrics struct {
	transitions      *prometheus.CounterVec
	transitionErrors *prometheus.CounterVec
	invoiceEvents    *prometheus.CounterVec
	stockAdjustments *prometheus.CounterVec
	snapshotFailures *prometheus.CounterVec
}

func New(registerer prometheus.Registerer, cfg Config) *ClaimMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "claimflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ClaimMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "claimflow_claim_transitions_total",
			Help:        "Claim status transitions committed, by from/to status.",
			ConstLabels: constLabels,
		}, []string{"from", "to", "direction"}),
		transitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "claimflow_claim_transition_errors_total",
			Help:        "Rejected or failed claim transitions by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		invoiceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "claimflow_invoice_events_total",
			Help:        "Invoice lifecycle events (created, approved, removed).",
			ConstLabels: constLabels,
		}, []string{"event"}),
		stockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "claimflow_stock_adjustments_total",
			Help:        "Stock ledger line adjustments by direction.",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		snapshotFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "claimflow_snapshot_failures_total",
			Help:        "Snapshot encode/decode failures.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
	}

	registerer.MustRegister(
		m.transitions,
		m.transitionErrors,
		m.invoiceEvents,
		m.stockAdjustments,
		m.snapshotFailures,
	)
	return m
}

func (m *ClaimMetrics) RecordTransition(from, to string, backward bool) {
	if m == nil {
		return
	}
	direction := "forward"
	if backward {
		direction = "backward"
	}
	m.transitions.WithLabelValues(from, to, direction).Inc()
}

func (m *ClaimMetrics) RecordTransitionError(reason string) {
	if m == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReasonUnknown
	}
	m.transitionErrors.WithLabelValues(reason).Inc()
}

func (m *ClaimMetrics) RecordInvoiceEvent(event string) {
	if m == nil {
		return
	}
	m.invoiceEvents.WithLabelValues(event).Inc()
}

func (m *ClaimMetrics) RecordStockAdjustment(direction string, lines int) {
	if m == nil || lines <= 0 {
		return
	}
	m.stockAdjustments.WithLabelValues(direction).Add(float64(lines))
}

func (m *ClaimMetrics) RecordSnapshotFailure(stage string) {
	if m == nil {
		return
	}
	m.snapshotFailures.WithLabelValues(stage).Inc()
}

// ClassifyReason maps infrastructure errors to a metric reason label.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case db.IsSerializationErr(err):
		return ReasonSerializationFailure
	case db.IsDuplicateKeyErr(err):
		return ReasonUniqueViolation
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ReasonNotFound
	default:
		return ReasonUnknown
	}
}
