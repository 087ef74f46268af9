package domain

import (
	"strings"
	"time"

	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"
)

// AuditEntry records one mutating administrative action. Append-only: a
// correction is a new entry against the same target, never an update.
type AuditEntry struct {
	ID          string                 `json:"id"`
	ActorID     string                 `json:"actor_id"`
	Action      string                 `json:"action"` // verb.noun, e.g. "user.suspend"
	Target      Target                 `json:"target"`
	BeforeState map[string]interface{} `json:"before_state,omitempty"`
	AfterState  map[string]interface{} `json:"after_state,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	OriginIP    string                 `json:"origin_ip"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// destructiveVerbs are the action suffixes that require a reason.
var destructiveVerbs = map[string]struct{}{
	"suspend":     {},
	"ban":         {},
	"delete":      {},
	"role_change": {},
}

// Destructive reports whether the action's verb is in the destructive set.
// Actions are verb.noun; the verb is everything after the last dot.
func (e *AuditEntry) Destructive() bool {
	idx := strings.LastIndex(e.Action, ".")
	if idx < 0 {
		return false
	}
	_, ok := destructiveVerbs[e.Action[idx+1:]]
	return ok
}

func (e *AuditEntry) Validate() error {
	if e.ActorID == "" {
		return xerrors.ErrActorRequired
	}
	if e.Action == "" {
		return xerrors.ErrActionRequired
	}
	if e.OriginIP == "" {
		return xerrors.ErrOriginIPRequired
	}
	if err := e.Target.Validate(); err != nil {
		return err
	}
	if e.Destructive() && e.Reason == "" {
		return xerrors.ErrReasonRequired
	}
	return nil
}
