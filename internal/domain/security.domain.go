package domain

import "time"

// Severity is a fixed total order: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at or above min in the severity order.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SecurityEvent is a flagged security condition (failed logins, permission
// probing, anomalous traffic). Created unresolved; transitions to resolved
// exactly once.
type SecurityEvent struct {
	ID          string                 `json:"id"`
	SubjectID   *string                `json:"subject_id,omitempty"`
	Type        string                 `json:"type"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	OriginIP    string                 `json:"origin_ip,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Resolved    bool                   `json:"resolved"`
	ResolvedBy  *string                `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
