package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusDraft, StatusSubmitted},
		StatusSubmitted:   {StatusDraft, StatusUnderReview},
		StatusUnderReview: {StatusSubmitted, StatusApproved},
		StatusApproved:    {StatusUnderReview, StatusInvoiced},
		StatusInvoiced:    {StatusApproved},
	}

	for _, current := range Statuses {
		for _, target := range Statuses {
			want := false
			for _, s := range allowed[current] {
				if s == target {
					want = true
				}
			}
			assert.Equal(t, want, IsAllowed(current, target), "%s -> %s", current, target)
		}
		assert.Equal(t, allowed[current], AllowedTargets(current), "targets of %s", current)
	}
}

func TestIsBackward(t *testing.T) {
	backward := map[Status]Status{
		StatusSubmitted:   StatusDraft,
		StatusUnderReview: StatusSubmitted,
		StatusApproved:    StatusUnderReview,
		StatusInvoiced:    StatusApproved,
	}

	for _, current := range Statuses {
		for _, target := range Statuses {
			want := backward[current] == target
			assert.Equal(t, want, IsBackward(current, target), "%s -> %s", current, target)
		}
	}
	assert.False(t, IsBackward(StatusDraft, StatusDraft))
	assert.False(t, IsBackward(Status("BOGUS"), StatusDraft))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" under_review ")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, s)

	_, err = ParseStatus("PAID")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
