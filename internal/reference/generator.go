package reference

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	claimPrefix   = "CLM-"
	invoicePrefix = "INV-"
	claimLayout   = "20060102150405"
)

// Generator issues human-facing reference codes for claims and invoices.
type Generator interface {
	ClaimReference(now time.Time) string
	InvoiceReference() string
}

// TimestampGenerator formats claim references from the creation time and
// invoice references from a random uuid. Claim references issued by one
// process never repeat: a second claim inside the same second is pushed to
// the next free second.
type TimestampGenerator struct {
	mu   sync.Mutex
	last time.Time
}

func NewGenerator() Generator {
	return &TimestampGenerator{}
}

func (g *TimestampGenerator) ClaimReference(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := now.UTC().Truncate(time.Second)
	if !ts.After(g.last) {
		ts = g.last.Add(time.Second)
	}
	g.last = ts
	return claimPrefix + ts.Format(claimLayout)
}

func (g *TimestampGenerator) InvoiceReference() string {
	return invoicePrefix + strings.ToUpper(uuid.NewString()[:8])
}
