package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/clock"
	"github.com/smallbiznis/claimflow/internal/history/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Encode(s domain.Snapshot) ([]byte, error) {
	args := m.Called(s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockCodec) Decode(payload []byte) (domain.Snapshot, error) {
	args := m.Called(payload)
	return args.Get(0).(domain.Snapshot), args.Error(1)
}

type fixture struct {
	svc   domain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T, codec domain.Codec) fixture {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.HistoryEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	return fixture{
		svc: NewService(Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Codec: codec,
		}),
		clock: clk,
		node:  node,
	}
}

func sampleClaim(id snowflake.ID, claimant string) claimdomain.Claim {
	return claimdomain.Claim{
		ID:           id,
		ClaimantName: claimant,
		Description:  "Travel",
		Status:       claimdomain.StatusDraft,
		Lines: []claimdomain.ClaimLine{
			{ItemName: "Taxi", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
	}
}

func TestRecordAndDecodeRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	claim := sampleClaim(f.node.Generate(), "Alice")

	entry, err := f.svc.Record(ctx, claim, claimdomain.StatusDraft, claimdomain.StatusDraft, "Claim created")
	require.NoError(t, err)

	found, err := f.svc.MostRecentFor(ctx, claim.ID, claimdomain.StatusDraft)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.ID, found.ID)

	snapshot, err := f.svc.Decode(*found)
	require.NoError(t, err)
	assert.Equal(t, "Alice", snapshot.ClaimantName)
	assert.Equal(t, "Travel", snapshot.Description)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "Taxi", snapshot.Items[0].ItemName)
	assert.Equal(t, int64(2), snapshot.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("12.50").Equal(snapshot.Items[0].UnitPrice))
}

func TestMostRecentForPicksLatestMatchingStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.node.Generate()

	_, err := f.svc.Record(ctx, sampleClaim(id, "Alice"), claimdomain.StatusDraft, claimdomain.StatusDraft, "Claim created")
	require.NoError(t, err)
	// same timestamp on purpose: the id decides
	latest, err := f.svc.Record(ctx, sampleClaim(id, "Bob"), claimdomain.StatusDraft, claimdomain.StatusDraft, "Draft updated")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Record(ctx, sampleClaim(id, "Carol"), claimdomain.StatusDraft, claimdomain.StatusSubmitted, "Submit")
	require.NoError(t, err)

	found, err := f.svc.MostRecentFor(ctx, id, claimdomain.StatusDraft)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, latest.ID, found.ID)

	snapshot, err := f.svc.Decode(*found)
	require.NoError(t, err)
	assert.Equal(t, "Bob", snapshot.ClaimantName)

	none, err := f.svc.MostRecentFor(ctx, id, claimdomain.StatusApproved)
	require.NoError(t, err)
	assert.Nil(t, none)

	other, err := f.svc.MostRecentFor(ctx, f.node.Generate(), claimdomain.StatusDraft)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRecordStoresPlaceholderWhenEncodeFails(t *testing.T) {
	codec := &mockCodec{}
	codec.On("Encode", mock.Anything).Return(nil, errors.New("boom"))
	f := newFixture(t, codec)
	ctx := context.Background()
	claim := sampleClaim(f.node.Generate(), "Alice")

	entry, err := f.svc.Record(ctx, claim, claimdomain.StatusDraft, claimdomain.StatusSubmitted, "Submit")
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderPayload, string(entry.Snapshot))
	codec.AssertExpectations(t)

	_, err = domain.JSONCodec{}.Decode(entry.Snapshot)
	assert.ErrorIs(t, err, domain.ErrSnapshotDecode)
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Decode(domain.HistoryEntry{Snapshot: []byte(`{"claimant_name":`)})
	assert.ErrorIs(t, err, domain.ErrSnapshotDecode)

	_, err = f.svc.Decode(domain.HistoryEntry{Snapshot: []byte(domain.PlaceholderPayload)})
	assert.ErrorIs(t, err, domain.ErrSnapshotDecode)
}

func TestListIsAscending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.node.Generate()
	claim := sampleClaim(id, "Alice")

	steps := []struct{ from, to claimdomain.Status }{
		{claimdomain.StatusDraft, claimdomain.StatusDraft},
		{claimdomain.StatusDraft, claimdomain.StatusSubmitted},
		{claimdomain.StatusSubmitted, claimdomain.StatusUnderReview},
	}
	for _, step := range steps {
		_, err := f.svc.Record(ctx, claim, step.from, step.to, "step")
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	entries, err := f.svc.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, step := range steps {
		assert.Equal(t, step.to, entries[i].ToStatus)
		assert.Equal(t, step.from, entries[i].FromStatus)
	}
}
