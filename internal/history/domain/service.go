package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"gorm.io/gorm"
)

// Service is the append-only snapshot log keyed by claim and status entered.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, claim claimdomain.Claim, from, to claimdomain.Status, comment string) (*HistoryEntry, error)
	MostRecentFor(ctx context.Context, claimID snowflake.ID, status claimdomain.Status) (*HistoryEntry, error)
	Decode(entry HistoryEntry) (Snapshot, error)
	List(ctx context.Context, claimID snowflake.ID) ([]HistoryEntry, error)
}

var (
	ErrSnapshotDecode = errors.New("snapshot_decode_failed")
)
