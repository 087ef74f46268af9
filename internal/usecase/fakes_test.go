package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// fakeRedis backs pkg/cache in tests; only the commands Cache issues are
// implemented. The onSet/onDel hooks let a test observe write ordering.
type fakeRedis struct {
	redis.UniversalClient
	store map[string]string
	err   error
	onSet func(key, value string)
	onDel func(key string)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string]string)}
}

func newFakeCache() (*cache.Cache, *fakeRedis) {
	r := newFakeRedis()
	return cache.NewCacheFromClient(r), r
}

func redisValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.store[key] = redisValue(value)
	if f.onSet != nil {
		f.onSet(key, f.store[key])
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, exists := f.store[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.store[key] = redisValue(value)
	if f.onSet != nil {
		f.onSet(key, f.store[key])
	}
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.store[key]; ok {
			delete(f.store, key)
			n++
		}
		if f.onDel != nil {
			f.onDel(key)
		}
	}
	return redis.NewIntResult(n, nil)
}

// fakeTx satisfies pgx.Tx for the audited-transaction path; only the
// lifecycle methods matter here.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	lastTx   *fakeTx
	beginErr error
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	db.lastTx = &fakeTx{}
	return db.lastTx, nil
}

type fakeAuditRepo struct {
	entries   []*domain.AuditEntry
	insertErr error
}

func (r *fakeAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	return r.Insert(ctx, e)
}

func (r *fakeAuditRepo) Tail(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	out := make([]*domain.AuditEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeAuditRepo) ByTarget(ctx context.Context, targetType domain.TargetKind, targetID string) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range r.entries {
		if e.Target.Kind == targetType && e.Target.ID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range r.entries {
		if e.ActorID == actorID && !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeEventRepo struct {
	events    []*domain.Event
	insertErr error
}

func (r *fakeEventRepo) Insert(ctx context.Context, e *domain.Event) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEventRepo) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.ActorID != nil && *e.ActorID == actorID && !e.OccurredAt.Before(from) && !e.OccurredAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error) {
	var n int64
	for _, e := range r.events {
		if e.Type == eventType && !e.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakePermissionRepo struct {
	grants []*domain.PermissionGrant
	nextID int64
}

func grantKey(userID, permission string, resourceType, resourceID *string) string {
	rt, ri := "", ""
	if resourceType != nil {
		rt = *resourceType
	}
	if resourceID != nil {
		ri = *resourceID
	}
	return strings.Join([]string{userID, permission, rt, ri}, "|")
}

func (r *fakePermissionRepo) Upsert(ctx context.Context, g *domain.PermissionGrant) error {
	key := grantKey(g.UserID, g.Permission, g.ResourceType, g.ResourceID)
	for i, existing := range r.grants {
		if grantKey(existing.UserID, existing.Permission, existing.ResourceType, existing.ResourceID) == key {
			g.ID = existing.ID
			g.GrantedAt = time.Now().UTC()
			r.grants[i] = g
			return nil
		}
	}
	r.nextID++
	g.ID = r.nextID
	g.GrantedAt = time.Now().UTC()
	r.grants = append(r.grants, g)
	return nil
}

func (r *fakePermissionRepo) UpsertTx(ctx context.Context, tx pgx.Tx, g *domain.PermissionGrant) error {
	return r.Upsert(ctx, g)
}

func (r *fakePermissionRepo) Delete(ctx context.Context, userID, permission string, resourceType, resourceID *string) error {
	key := grantKey(userID, permission, resourceType, resourceID)
	for i, g := range r.grants {
		if grantKey(g.UserID, g.Permission, g.ResourceType, g.ResourceID) == key {
			r.grants = append(r.grants[:i], r.grants[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakePermissionRepo) DeleteTx(ctx context.Context, tx pgx.Tx, userID, permission string, resourceType, resourceID *string) error {
	return r.Delete(ctx, userID, permission, resourceType, resourceID)
}

func (r *fakePermissionRepo) FindForCheck(ctx context.Context, userID, permission string) ([]*domain.PermissionGrant, error) {
	var out []*domain.PermissionGrant
	for _, g := range r.grants {
		if g.UserID == userID && g.Permission == permission {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakePermissionRepo) ListForUser(ctx context.Context, userID string) ([]*domain.PermissionGrant, error) {
	var out []*domain.PermissionGrant
	for _, g := range r.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakePermissionRepo) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var kept []*domain.PermissionGrant
	var pruned int64
	for _, g := range r.grants {
		if g.ExpiresAt != nil && g.ExpiresAt.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, g)
	}
	r.grants = kept
	return pruned, nil
}

type fakeSessionRepo struct {
	sessions     map[string]*domain.AdminSession
	isValidCalls int
	onIsValid    func()
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.AdminSession)}
}

func (r *fakeSessionRepo) Insert(ctx context.Context, s *domain.AdminSession) error {
	if _, exists := r.sessions[s.Token]; exists {
		return errors.New("duplicate token")
	}
	r.sessions[s.Token] = s
	return nil
}

func (r *fakeSessionRepo) GetByToken(ctx context.Context, token string) (*domain.AdminSession, error) {
	s, ok := r.sessions[token]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, token string) (bool, error) {
	s, ok := r.sessions[token]
	if !ok || !s.Valid(time.Now().UTC()) {
		return false, nil
	}
	s.LastActivityAt = time.Now().UTC()
	return true, nil
}

func (r *fakeSessionRepo) Revoke(ctx context.Context, token, revokedBy, reason string) (bool, error) {
	s, ok := r.sessions[token]
	if !ok || !s.Valid(time.Now().UTC()) {
		return false, nil
	}
	now := time.Now().UTC()
	s.Revoked = true
	s.RevokedAt = &now
	s.RevokedBy = &revokedBy
	s.RevokeReason = &reason
	return true, nil
}

func (r *fakeSessionRepo) RevokeTx(ctx context.Context, tx pgx.Tx, token, revokedBy, reason string) (bool, error) {
	return r.Revoke(ctx, token, revokedBy, reason)
}

func (r *fakeSessionRepo) RevokeAllForUser(ctx context.Context, userID, revokedBy, reason string) ([]string, error) {
	var tokens []string
	for token, s := range r.sessions {
		if s.UserID == userID && s.Valid(time.Now().UTC()) {
			if _, err := r.Revoke(ctx, token, revokedBy, reason); err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (r *fakeSessionRepo) RevokeAllForUserTx(ctx context.Context, tx pgx.Tx, userID, revokedBy, reason string) ([]string, error) {
	return r.RevokeAllForUser(ctx, userID, revokedBy, reason)
}

func (r *fakeSessionRepo) IsValid(ctx context.Context, token string) (bool, error) {
	r.isValidCalls++
	s, ok := r.sessions[token]
	valid := ok && s.Valid(time.Now().UTC())
	if r.onIsValid != nil {
		r.onIsValid()
	}
	return valid, nil
}

func (r *fakeSessionRepo) ListActiveForUser(ctx context.Context, userID string) ([]*domain.AdminSession, error) {
	var out []*domain.AdminSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.Valid(time.Now().UTC()) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeFlagRepo struct {
	flags    map[string]*domain.FeatureFlag
	getCalls int
}

func newFakeFlagRepo() *fakeFlagRepo {
	return &fakeFlagRepo{flags: make(map[string]*domain.FeatureFlag)}
}

func (r *fakeFlagRepo) Upsert(ctx context.Context, f *domain.FeatureFlag) error {
	f.UpdatedAt = time.Now().UTC()
	r.flags[f.Name] = f
	return nil
}

func (r *fakeFlagRepo) UpsertTx(ctx context.Context, tx pgx.Tx, f *domain.FeatureFlag) error {
	return r.Upsert(ctx, f)
}

func (r *fakeFlagRepo) Get(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	r.getCalls++
	f, ok := r.flags[name]
	if !ok {
		return nil, xerrors.ErrFlagNotFound
	}
	return f, nil
}

func (r *fakeFlagRepo) List(ctx context.Context) ([]*domain.FeatureFlag, error) {
	out := make([]*domain.FeatureFlag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFlagRepo) Delete(ctx context.Context, name string) error {
	delete(r.flags, name)
	return nil
}

func (r *fakeFlagRepo) DeleteTx(ctx context.Context, tx pgx.Tx, name string) error {
	return r.Delete(ctx, name)
}

type fakeMetricRepo struct {
	rows map[string]*domain.DailyMetric
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{rows: make(map[string]*domain.DailyMetric)}
}

func metricKey(day time.Time, name string, dims map[string]string) string {
	return day.Format("2006-01-02") + "|" + name + "|" + domain.NormalizeDimensions(dims)
}

func (r *fakeMetricRepo) Replace(ctx context.Context, m *domain.DailyMetric) error {
	m.UpdatedAt = time.Now().UTC()
	r.rows[metricKey(m.Day, m.MetricName, m.Dimensions)] = m
	return nil
}

func (r *fakeMetricRepo) Get(ctx context.Context, day time.Time, metricName string, dims map[string]string) (*domain.DailyMetric, error) {
	m, ok := r.rows[metricKey(day, metricName, dims)]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return m, nil
}

func (r *fakeMetricRepo) Series(ctx context.Context, metricName string, from, to time.Time) ([]*domain.DailyMetric, error) {
	var out []*domain.DailyMetric
	for _, m := range r.rows {
		if m.MetricName == metricName && !m.Day.Before(from) && !m.Day.After(to) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

type fakeSecurityRepo struct {
	events map[string]*domain.SecurityEvent
	order  []string
}

func newFakeSecurityRepo() *fakeSecurityRepo {
	return &fakeSecurityRepo{events: make(map[string]*domain.SecurityEvent)}
}

func (r *fakeSecurityRepo) Insert(ctx context.Context, e *domain.SecurityEvent) error {
	r.events[e.ID] = e
	r.order = append(r.order, e.ID)
	return nil
}

func (r *fakeSecurityRepo) MarkResolved(ctx context.Context, id, resolvedBy string) (bool, error) {
	e, ok := r.events[id]
	if !ok {
		return false, xerrors.ErrNotFound
	}
	if e.Resolved {
		return false, nil
	}
	now := time.Now().UTC()
	e.Resolved = true
	e.ResolvedBy = &resolvedBy
	e.ResolvedAt = &now
	return true, nil
}

func (r *fakeSecurityRepo) MarkResolvedTx(ctx context.Context, tx pgx.Tx, id, resolvedBy string) (bool, error) {
	return r.MarkResolved(ctx, id, resolvedBy)
}

func (r *fakeSecurityRepo) Unresolved(ctx context.Context, minSeverity domain.Severity) ([]*domain.SecurityEvent, error) {
	var out []*domain.SecurityEvent
	for _, id := range r.order {
		e := r.events[id]
		if !e.Resolved && e.Severity.AtLeast(minSeverity) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeSecurityRepo) Get(ctx context.Context, id string) (*domain.SecurityEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

func (r *fakeSecurityRepo) CountOpenBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	out := make(map[domain.Severity]int)
	for _, e := range r.events {
		if !e.Resolved {
			out[e.Severity]++
		}
	}
	return out, nil
}
