package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content/repository"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/metrics"
)

const DefaultMaxAttempts = 3

const publishTimeout = 30 * time.Second

const (
	opCreate        = "create"
	opUpdate        = "update"
	opTransition    = "transition"
	opChangeRequest = "change_request"
)

// Authorizer is the slice of the permission oracle the workflow needs.
type Authorizer interface {
	AuthorizeAny(ctx context.Context, identity string, resourceIDs []string, action permissions.Action) bool
}

// Publisher receives approved content after the write that approved it has committed.
type Publisher interface {
	Publish(ctx context.Context, it *content.Item) error
	Unpublish(ctx context.Context, id string) error
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithMaxAttempts bounds how often a conditional write is retried after losing a race.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Service runs every content operation: CRUD and the approval workflow. It is the only
// writer of content status.
type Service struct {
	repo        repository.Repository
	auth        Authorizer
	publisher   Publisher
	now         func() time.Time
	maxAttempts int
}

func NewService(repo repository.Repository, auth Authorizer, opts ...Option) *Service {
	s := &Service{repo: repo, auth: auth, now: time.Now, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewItem is the caller-supplied part of a new content item.
type NewItem struct {
	UniversityID string
	ProfileID    string
	Kind         content.Kind
	Title        string
	Body         string
}

// Create stores a new item in draft. The actor needs edit rights on the profile or university.
func (s *Service) Create(ctx context.Context, actor string, in NewItem) (*content.Item, error) {
	item, err := s.create(ctx, actor, in)
	s.record(opCreate, err)
	return item, err
}

func (s *Service) create(ctx context.Context, actor string, in NewItem) (*content.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.UniversityID == "" || in.ProfileID == "":
		return nil, newError(KindValidation, "universityId and profileId are required", nil)
	case !in.Kind.Valid():
		return nil, newError(KindValidation, "kind must be profile or article", nil)
	case in.Title == "":
		return nil, newError(KindValidation, "title is required", nil)
	}
	it := &content.Item{
		UniversityID: in.UniversityID,
		ProfileID:    in.ProfileID,
		Kind:         in.Kind,
		Title:        in.Title,
		Body:         in.Body,
		Status:       content.StatusDraft,
		History:      []content.HistoryEntry{},
		Revision:     1,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}
	if !s.auth.AuthorizeAny(ctx, actor, it.ResourceIDs(), permissions.ActionEdit) {
		return nil, denied()
	}
	if err := s.checkProfileUniversity(ctx, it.ProfileID, it.UniversityID); err != nil {
		return nil, err
	}
	it.CreatedAt = s.now().UTC()
	it.UpdatedAt = it.CreatedAt
	if _, err := s.repo.Create(ctx, it); err != nil {
		return nil, storeError(err)
	}
	logger.Infof("content %s created by %s", it.ID, actor)
	return it, nil
}

// checkProfileUniversity keeps a profile under the university its existing content was filed
// with, so a university-level grant cannot place content under another university's profile.
func (s *Service) checkProfileUniversity(ctx context.Context, profileID, universityID string) error {
	existing, err := s.repo.List(ctx, repository.Filter{ProfileID: profileID})
	if err != nil {
		return storeError(err)
	}
	for _, it := range existing {
		if it.UniversityID != universityID {
			return newError(KindValidation, "profile "+profileID+" belongs to another university", nil)
		}
	}
	return nil
}

// Get returns one item if the actor may read it.
func (s *Service) Get(ctx context.Context, actor, id string) (*content.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.auth.AuthorizeAny(ctx, actor, it.ResourceIDs(), permissions.ActionRead) {
		return nil, denied()
	}
	return it, nil
}

// History returns the audit trail of one item, oldest entry first.
func (s *Service) History(ctx context.Context, actor, id string) ([]content.HistoryEntry, error) {
	it, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return it.History, nil
}

// List returns the items matching f that the actor may read.
func (s *Service) List(ctx context.Context, actor string, f repository.Filter) ([]*content.Item, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(KindValidation, "unknown status filter", nil)
	}
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]*content.Item, 0, len(items))
	for _, it := range items {
		if s.auth.AuthorizeAny(ctx, actor, it.ResourceIDs(), permissions.ActionRead) {
			out = append(out, it)
		}
	}
	return out, nil
}

// UpdateContent edits title and body of a draft. It records no history entry; history is
// reserved for workflow events.
func (s *Service) UpdateContent(ctx context.Context, actor, id string, title, body *string) (*content.Item, error) {
	if title == nil && body == nil {
		err := newError(KindValidation, "nothing to update", nil)
		s.record(opUpdate, err)
		return nil, err
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			err := newError(KindValidation, "title must not be empty", nil)
			s.record(opUpdate, err)
			return nil, err
		}
		title = &t
	}
	it, err := s.commit(ctx, opUpdate, id, func(cur *content.Item) (content.Change, error) {
		if !s.auth.AuthorizeAny(ctx, actor, cur.ResourceIDs(), permissions.ActionEdit) {
			return content.Change{}, denied()
		}
		if cur.Status != content.StatusDraft {
			return content.Change{}, newError(KindInvalidTransition, "only draft content can be edited; send it back to draft first", nil)
		}
		return content.Change{Title: title, Body: body, UpdatedBy: actor, UpdatedAt: s.now().UTC()}, nil
	})
	return it, err
}

// RequestTransition moves an item to status to on behalf of actor.
func (s *Service) RequestTransition(ctx context.Context, id string, to content.Status, actor string) (*content.Item, error) {
	if actor == "" {
		err := denied()
		s.record(opTransition, err)
		return nil, err
	}
	if !to.Valid() {
		err := ValidateTransition("", to)
		s.record(opTransition, err)
		return nil, err
	}
	return s.commit(ctx, opTransition, id, func(cur *content.Item) (content.Change, error) {
		if !s.auth.AuthorizeAny(ctx, actor, cur.ResourceIDs(), RequiredAction(cur.Status, to)) {
			return content.Change{}, denied()
		}
		if err := ValidateTransition(cur.Status, to); err != nil {
			return content.Change{}, err
		}
		return s.statusChange(cur, content.EntryStatusChange, to, actor, ""), nil
	})
}

func (s *Service) statusChange(cur *content.Item, typ content.EntryType, to content.Status, actor, reason string) content.Change {
	at := s.now().UTC()
	if last := cur.LastEntryAt(); at.Before(last) {
		at = last
	}
	return content.Change{
		Status: to,
		Entry: &content.HistoryEntry{
			Type:      typ,
			From:      cur.Status,
			To:        to,
			By:        actor,
			Reason:    reason,
			Timestamp: at,
		},
		UpdatedBy: actor,
		UpdatedAt: at,
	}
}

// commit runs the read, decide, conditional-write cycle. decide sees fresh state on every
// attempt; a lost race is retried up to maxAttempts times.
func (s *Service) commit(ctx context.Context, op, id string, decide func(cur *content.Item) (content.Change, error)) (*content.Item, error) {
	var (
		updated *content.Item
		prev    content.Status
		err     error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var cur *content.Item
		cur, err = s.load(ctx, id)
		if err != nil {
			break
		}
		var ch content.Change
		ch, err = decide(cur)
		if err != nil {
			break
		}
		prev = cur.Status
		updated, err = s.repo.ApplyChange(ctx, id, cur.Revision, ch)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) {
			metrics.WorkflowConflicts.Inc()
			logger.Debugf("%s on %s lost a race (attempt %d/%d)", op, id, attempt, s.maxAttempts)
			err = newError(KindConcurrentModification, "this content was changed by someone else; reload and try again", err)
			continue
		}
		err = storeError(err)
		break
	}
	s.record(op, err)
	if err != nil {
		return nil, err
	}
	if prev != updated.Status {
		logger.Infof("content %s moved %s -> %s by %s", id, prev, updated.Status, updated.UpdatedBy)
		s.afterStatusChange(ctx, prev, updated)
	}
	return updated, nil
}

// afterStatusChange keeps the published snapshot in line with the committed status.
// It outlives the caller's context since the write has already committed. Its failures never
// undo or fail the transition.
func (s *Service) afterStatusChange(ctx context.Context, from content.Status, it *content.Item) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	var err error
	switch {
	case it.Status == content.StatusApproved:
		err = s.publisher.Publish(ctx, it)
	case from == content.StatusApproved:
		err = s.publisher.Unpublish(ctx, it.ID)
	default:
		return
	}
	if err != nil {
		metrics.PublishFailures.Inc()
		logger.Errorf("publishing snapshot of %s failed: %v", it.ID, err)
	}
}

func (s *Service) load(ctx context.Context, id string) (*content.Item, error) {
	if id == "" {
		return nil, newError(KindValidation, "content id is required", nil)
	}
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return it, nil
}

func (s *Service) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.WorkflowOutcomes.WithLabelValues(op, outcome).Inc()
}

func denied() *Error {
	return newError(KindPermissionDenied, "you do not have permission to do this", nil)
}

func storeError(err error) error {
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, "content not found", err)
	}
	logger.Errorf("content store failure: %v", err)
	return newError(KindStoreUnavailable, "the content store is unavailable; try again later", err)
}
