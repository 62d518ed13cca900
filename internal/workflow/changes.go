package workflow

import (
	"context"
	"strings"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
)

// RequestChanges sends an item back to draft with a reason that is kept in its history.
// A blank reason is rejected before the store is touched.
func (s *Service) RequestChanges(ctx context.Context, id, reason, actor string) (*content.Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := newError(KindValidation, "a reason is required when requesting changes", nil)
		s.record(opChangeRequest, err)
		return nil, err
	}
	if actor == "" {
		err := denied()
		s.record(opChangeRequest, err)
		return nil, err
	}
	return s.commit(ctx, opChangeRequest, id, func(cur *content.Item) (content.Change, error) {
		if !s.auth.AuthorizeAny(ctx, actor, cur.ResourceIDs(), permissions.ActionRequestChanges) {
			return content.Change{}, denied()
		}
		if err := ValidateTransition(cur.Status, content.StatusDraft); err != nil {
			return content.Change{}, err
		}
		return s.statusChange(cur, content.EntryChangeRequest, content.StatusDraft, actor, reason), nil
	})
}
