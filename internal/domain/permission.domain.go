package domain

import "time"

// PermissionGrant is a time-bounded, resource-scoped capability. A nil
// ResourceType means all resource types; a nil ResourceID means all resources
// of that type. At most one grant exists per
// (user_id, permission, resource_type, resource_id).
type PermissionGrant struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	Permission   string     `json:"permission"`
	ResourceType *string    `json:"resource_type,omitempty"`
	ResourceID   *string    `json:"resource_id,omitempty"`
	GrantedBy    string     `json:"granted_by"`
	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the grant is live at now. Expiry is lazy: expired
// rows are treated as absent, pruning is optional.
func (g *PermissionGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}

// Matches applies the wildcard rule: each scope field matches when the grant
// leaves it nil or when it equals the requested value. A blanket grant
// therefore covers every specific resource without a second row.
func (g *PermissionGrant) Matches(permission string, resourceType, resourceID *string) bool {
	if g.Permission != permission {
		return false
	}
	if g.ResourceType != nil && (resourceType == nil || *g.ResourceType != *resourceType) {
		return false
	}
	if g.ResourceID != nil && (resourceID == nil || *g.ResourceID != *resourceID) {
		return false
	}
	return true
}
