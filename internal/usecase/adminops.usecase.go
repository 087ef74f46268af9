package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
)

// AdminActor identifies who performs an audited action and from where.
type AdminActor struct {
	ID       string
	OriginIP string
}

// AdminOps wraps the mutating admin operations of this core in the
// audit-before-commit discipline: the domain mutation and its audit entry
// run in one transaction, so a failed audit write fails the whole action.
type AdminOps struct {
	audit    *AuditLog
	perms    *PermissionRegistry
	sessions *SessionRegistry
	flags    *FeatureGate
	security *SecurityFeed
}

func NewAdminOps(audit *AuditLog, perms *PermissionRegistry, sessions *SessionRegistry, flags *FeatureGate, security *SecurityFeed) *AdminOps {
	return &AdminOps{
		audit:    audit,
		perms:    perms,
		sessions: sessions,
		flags:    flags,
		security: security,
	}
}

func (o *AdminOps) GrantPermission(ctx context.Context, g *domain.PermissionGrant, actor AdminActor) (string, error) {
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "permission.grant",
		Target:   domain.Target{Kind: domain.TargetUser, ID: g.UserID},
		OriginIP: actor.OriginIP,
		AfterState: map[string]interface{}{
			"permission":    g.Permission,
			"resource_type": g.ResourceType,
			"resource_id":   g.ResourceID,
			"expires_at":    g.ExpiresAt,
		},
	}
	return o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		return o.perms.GrantTx(ctx, tx, g)
	})
}

func (o *AdminOps) RevokePermission(ctx context.Context, userID, permission string, resourceType, resourceID *string, reason string, actor AdminActor) (string, error) {
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "permission.revoke",
		Target:   domain.Target{Kind: domain.TargetUser, ID: userID},
		Reason:   reason,
		OriginIP: actor.OriginIP,
		BeforeState: map[string]interface{}{
			"permission":    permission,
			"resource_type": resourceType,
			"resource_id":   resourceID,
		},
	}
	return o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		return o.perms.RevokeTx(ctx, tx, userID, permission, resourceType, resourceID)
	})
}

func (o *AdminOps) UpsertFlag(ctx context.Context, f *domain.FeatureFlag, actor AdminActor) (string, error) {
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "feature_flag.update",
		Target:   domain.Target{Kind: domain.TargetFlag, ID: f.Name},
		OriginIP: actor.OriginIP,
		AfterState: map[string]interface{}{
			"enabled":            f.Enabled,
			"rollout_percentage": f.RolloutPercentage,
			"target_users":       f.TargetUsers,
		},
	}
	if prev, err := o.flags.Get(ctx, f.Name); err == nil {
		entry.BeforeState = map[string]interface{}{
			"enabled":            prev.Enabled,
			"rollout_percentage": prev.RolloutPercentage,
			"target_users":       prev.TargetUsers,
		}
	} else if !errors.Is(err, xerrors.ErrFlagNotFound) {
		return "", err
	}

	auditID, err := o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		return o.flags.UpsertTx(ctx, tx, f)
	})
	if err != nil {
		return "", err
	}
	// Invalidate only after commit, mirroring the session revoke paths: an
	// in-transaction invalidate lets a concurrent read re-cache the old row.
	o.flags.invalidate(ctx, f.Name)
	return auditID, nil
}

func (o *AdminOps) DeleteFlag(ctx context.Context, name, reason string, actor AdminActor) (string, error) {
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "feature_flag.delete",
		Target:   domain.Target{Kind: domain.TargetFlag, ID: name},
		Reason:   reason,
		OriginIP: actor.OriginIP,
	}
	auditID, err := o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		return o.flags.DeleteTx(ctx, tx, name)
	})
	if err != nil {
		return "", err
	}
	o.flags.invalidate(ctx, name)
	return auditID, nil
}

func (o *AdminOps) RevokeSession(ctx context.Context, token, reason string, actor AdminActor) (string, error) {
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "session.revoke",
		Target:   domain.Target{Kind: domain.TargetSession},
		Reason:   reason,
		OriginIP: actor.OriginIP,
	}
	auditID, err := o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		return o.sessions.revokeTx(ctx, tx, token, actor.ID, reason)
	})
	if err != nil {
		return "", err
	}
	o.sessions.invalidate(ctx, token)
	return auditID, nil
}

// RevokeUserSessions is the cascade revoke behind suspensions and bans.
func (o *AdminOps) RevokeUserSessions(ctx context.Context, userID, reason string, actor AdminActor) (int, string, error) {
	var tokens []string
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "session.revoke_all",
		Target:   domain.Target{Kind: domain.TargetUser, ID: userID},
		Reason:   reason,
		OriginIP: actor.OriginIP,
	}
	auditID, err := o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		var err error
		tokens, err = o.sessions.revokeAllTx(ctx, tx, userID, actor.ID, reason)
		return err
	})
	if err != nil {
		return 0, "", err
	}
	for _, token := range tokens {
		o.sessions.invalidate(ctx, token)
	}
	return len(tokens), auditID, nil
}

func (o *AdminOps) ResolveSecurityEvent(ctx context.Context, eventID string, actor AdminActor) (ResolveStatus, error) {
	var status ResolveStatus
	entry := &domain.AuditEntry{
		ActorID:  actor.ID,
		Action:   "security_event.resolve",
		Target:   domain.Target{Kind: domain.TargetSystem, ID: eventID},
		OriginIP: actor.OriginIP,
	}
	_, err := o.audit.WithAudit(ctx, entry, func(tx pgx.Tx) error {
		var err error
		status, err = o.security.resolveTx(ctx, tx, eventID, actor.ID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("resolve security event: %w", err)
	}
	return status, nil
}
