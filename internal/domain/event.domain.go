package domain

import (
	"time"

	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"
)

// Event is a fine-grained activity record (view, search, login, inquiry).
// Immutable once recorded; ordering is occurred_at with id as tiebreaker.
type Event struct {
	ID         string                 `json:"id"`
	ActorID    *string                `json:"actor_id,omitempty"` // weak ref: actor may be deleted
	Type       string                 `json:"type"`
	Category   string                 `json:"category"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OriginIP   string                 `json:"origin_ip,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	SessionRef *string                `json:"session_ref,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e *Event) Validate() error {
	if e.Type == "" {
		return xerrors.ErrTypeRequired
	}
	if e.Category == "" {
		return xerrors.ErrCategoryRequired
	}
	return nil
}
