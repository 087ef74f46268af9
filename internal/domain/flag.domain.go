package domain

import (
	"hash/fnv"
	"time"
)

// FeatureFlag controls a percentage rollout with an explicit allow-list and
// a kill switch.
type FeatureFlag struct {
	Name              string    `json:"name"`
	Enabled           bool      `json:"enabled"`
	RolloutPercentage int       `json:"rollout_percentage"`
	TargetUsers       []string  `json:"target_users,omitempty"`
	CreatedBy         string    `json:"created_by,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Bucket maps (flag name, user) to a stable value in [0,100). FNV-1a is
// seed-free, so the mapping survives restarts and is identical on every node.
func Bucket(flagName, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagName + ":" + userID))
	return int(h.Sum32() % 100)
}

// EnabledFor evaluates the flag for a user:
//  1. kill switch: enabled=false overrides everything
//  2. allow-list membership always wins
//  3. sticky bucket < rollout percentage
//
// Ramping the percentage up only ever adds users; a user enabled at P stays
// enabled at every P' > P.
func (f *FeatureFlag) EnabledFor(userID string) bool {
	if !f.Enabled {
		return false
	}
	for _, u := range f.TargetUsers {
		if u == userID {
			return true
		}
	}
	return Bucket(f.Name, userID) < f.RolloutPercentage
}
