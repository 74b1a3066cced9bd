package domain

import "strings"

type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusInvoiced    Status = "INVOICED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusInvoiced,
}

var statusRank = map[Status]int{
	StatusDraft:       0,
	StatusSubmitted:   1,
	StatusUnderReview: 2,
	StatusApproved:    3,
	StatusInvoiced:    4,
}

// transitions is the legality table indexed by (current, target).
// DRAFT -> DRAFT is the save-draft self transition.
var transitions = map[Status]map[Status]bool{
	StatusDraft:       {StatusDraft: true, StatusSubmitted: true},
	StatusSubmitted:   {StatusDraft: true, StatusUnderReview: true},
	StatusUnderReview: {StatusSubmitted: true, StatusApproved: true},
	StatusApproved:    {StatusUnderReview: true, StatusInvoiced: true},
	StatusInvoiced:    {StatusApproved: true},
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func IsAllowed(current, target Status) bool {
	return transitions[current][target]
}

// IsBackward reports whether target is the lower-ranked neighbour of current.
func IsBackward(current, target Status) bool {
	if !current.Valid() || !target.Valid() {
		return false
	}
	return statusRank[target] == statusRank[current]-1
}

// AllowedTargets returns the legal targets of current in lifecycle order.
func AllowedTargets(current Status) []Status {
	targets := make([]Status, 0, 2)
	for _, s := range Statuses {
		if transitions[current][s] {
			targets = append(targets, s)
		}
	}
	return targets
}
