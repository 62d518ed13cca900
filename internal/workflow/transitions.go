package workflow

import (
	"fmt"
	"strings"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
)

// allowedTransitions is closed: a pair that is not listed here is not a transition.
var allowedTransitions = map[content.Status]map[content.Status]struct{}{
	content.StatusDraft: {
		content.StatusReview:   {},
		content.StatusArchived: {},
	},
	content.StatusReview: {
		content.StatusApproved: {},
		content.StatusDraft:    {},
	},
	content.StatusApproved: {
		content.StatusArchived: {},
		content.StatusDraft:    {},
	},
	content.StatusArchived: {
		content.StatusDraft: {},
	},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to content.Status) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// AllowedTargets returns the statuses reachable from from, in workflow order.
func AllowedTargets(from content.Status) []content.Status {
	out := []content.Status{}
	for _, st := range content.Statuses {
		if CanTransition(from, st) {
			out = append(out, st)
		}
	}
	return out
}

// ValidateTransition returns an InvalidTransition error describing the legal moves when
// from -> to is not one of them.
func ValidateTransition(from, to content.Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if !to.Valid() {
		return newError(KindInvalidTransition, fmt.Sprintf("%q is not a known status", to), nil)
	}
	if from == to {
		return newError(KindInvalidTransition, fmt.Sprintf("content is already %s", to), nil)
	}
	targets := AllowedTargets(from)
	if len(targets) == 0 {
		return newError(KindInvalidTransition, fmt.Sprintf("content in status %q cannot be moved", from), nil)
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return newError(KindInvalidTransition,
		fmt.Sprintf("content in %s can move to %s, not %s", from, strings.Join(names, " or "), to), nil)
}

// RequiredAction is the permission a move from -> to needs. Moves towards publication need
// advance, moves back towards draft need revert.
func RequiredAction(from, to content.Status) permissions.Action {
	if to.Rank() < from.Rank() {
		return permissions.ActionRevert
	}
	return permissions.ActionAdvance
}
