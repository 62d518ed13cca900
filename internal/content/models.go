package content

import "time"

// Status is the workflow state of a content item.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusReview   Status = "review"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Statuses lists every known status in workflow order.
var Statuses = []Status{StatusDraft, StatusReview, StatusApproved, StatusArchived}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders statuses along the publishing direction; -1 for unknown values.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Kind distinguishes memorial profiles from informational articles.
type Kind string

const (
	KindProfile Kind = "profile"
	KindArticle Kind = "article"
)

func (k Kind) Valid() bool {
	return k == KindProfile || k == KindArticle
}

// EntryType tags a history entry.
type EntryType string

const (
	EntryStatusChange  EntryType = "status_change"
	EntryChangeRequest EntryType = "change_request"
)

// HistoryEntry is one immutable audit record. Entries are only ever appended.
type HistoryEntry struct {
	Type      EntryType `json:"type" bson:"type"`
	From      Status    `json:"from" bson:"from"`
	To        Status    `json:"to" bson:"to"`
	By        string    `json:"by" bson:"by"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Item is a workflow-bearing document: a memorial profile or an article, scoped to a
// profile under a university.
type Item struct {
	ID           string         `json:"id" bson:"_id"`
	UniversityID string         `json:"universityId" bson:"universityId"`
	ProfileID    string         `json:"profileId" bson:"profileId"`
	Kind         Kind           `json:"kind" bson:"kind"`
	Title        string         `json:"title" bson:"title"`
	Body         string         `json:"body,omitempty" bson:"body,omitempty"`
	Status       Status         `json:"status" bson:"status"`
	History      []HistoryEntry `json:"history" bson:"history"`
	Revision     int64          `json:"revision" bson:"revision"`
	CreatedBy    string         `json:"createdBy" bson:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedBy    string         `json:"updatedBy" bson:"updatedBy"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy so callers never share the history slice with a store.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := *i
	out.History = make([]HistoryEntry, len(i.History))
	copy(out.History, i.History)
	return &out
}

// LastEntryAt returns the timestamp of the newest history entry, or the zero time.
func (i *Item) LastEntryAt() time.Time {
	if len(i.History) == 0 {
		return time.Time{}
	}
	return i.History[len(i.History)-1].Timestamp
}

// ResourceIDs returns the scopes a permission grant may be attached to, most specific first.
func (i *Item) ResourceIDs() []string {
	out := make([]string, 0, 2)
	if i.ProfileID != "" {
		out = append(out, i.ProfileID)
	}
	if i.UniversityID != "" && i.UniversityID != i.ProfileID {
		out = append(out, i.UniversityID)
	}
	return out
}

// Change is a single conditional mutation of an item. Zero-valued fields are left untouched.
type Change struct {
	Status    Status
	Entry     *HistoryEntry
	Title     *string
	Body      *string
	UpdatedBy string
	UpdatedAt time.Time
}

// Apply mutates i in place and bumps its revision.
func (i *Item) Apply(ch Change) {
	if ch.Status != "" {
		i.Status = ch.Status
	}
	if ch.Title != nil {
		i.Title = *ch.Title
	}
	if ch.Body != nil {
		i.Body = *ch.Body
	}
	if ch.Entry != nil {
		i.History = append(i.History, *ch.Entry)
	}
	i.UpdatedBy = ch.UpdatedBy
	i.UpdatedAt = ch.UpdatedAt
	i.Revision++
}
