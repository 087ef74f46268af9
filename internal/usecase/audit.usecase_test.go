package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/id"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuditLog(t *testing.T, repo *fakeAuditRepo, db *fakeDB) *AuditLog {
	t.Helper()
	sf, err := id.NewSnowflake(1)
	require.NoError(t, err)
	return NewAuditLog(repo, db, sf, zap.NewNop())
}

func validEntry() *domain.AuditEntry {
	return &domain.AuditEntry{
		ActorID:  "admin-1",
		Action:   "user.suspend",
		Target:   domain.Target{Kind: domain.TargetUser, ID: "user-9"},
		Reason:   "spam reports",
		OriginIP: "10.0.0.1",
	}
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	repo := &fakeAuditRepo{}
	log := newTestAuditLog(t, repo, &fakeDB{})

	auditID, err := log.Append(context.Background(), validEntry())

	require.NoError(t, err)
	assert.NotEmpty(t, auditID)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, auditID, repo.entries[0].ID)
	assert.False(t, repo.entries[0].CreatedAt.IsZero())
}

func TestAppend_DestructiveWithoutReason_NothingPersisted(t *testing.T) {
	repo := &fakeAuditRepo{}
	log := newTestAuditLog(t, repo, &fakeDB{})

	e := validEntry()
	e.Reason = ""

	_, err := log.Append(context.Background(), e)

	assert.ErrorIs(t, err, xerrors.ErrReasonRequired)
	assert.Empty(t, repo.entries)
}

func TestAppend_NonDestructiveWithoutReason_Allowed(t *testing.T) {
	repo := &fakeAuditRepo{}
	log := newTestAuditLog(t, repo, &fakeDB{})

	e := validEntry()
	e.Action = "listing.approve"
	e.Reason = ""

	_, err := log.Append(context.Background(), e)

	assert.NoError(t, err)
	assert.Len(t, repo.entries, 1)
}

func TestWithAudit_CommitsMutationAndEntryTogether(t *testing.T) {
	repo := &fakeAuditRepo{}
	db := &fakeDB{}
	log := newTestAuditLog(t, repo, db)

	mutated := false
	auditID, err := log.WithAudit(context.Background(), validEntry(), func(tx pgx.Tx) error {
		mutated = true
		return nil
	})

	require.NoError(t, err)
	assert.NotEmpty(t, auditID)
	assert.True(t, mutated)
	assert.Len(t, repo.entries, 1)
	require.NotNil(t, db.lastTx)
	assert.True(t, db.lastTx.committed)
}

func TestWithAudit_MutationFails_NoAuditEntry(t *testing.T) {
	repo := &fakeAuditRepo{}
	db := &fakeDB{}
	log := newTestAuditLog(t, repo, db)

	boom := errors.New("constraint violation")
	_, err := log.WithAudit(context.Background(), validEntry(), func(tx pgx.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, repo.entries)
	require.NotNil(t, db.lastTx)
	assert.True(t, db.lastTx.rolledBack)
}

func TestWithAudit_AuditInsertFails_ActionFails(t *testing.T) {
	repo := &fakeAuditRepo{insertErr: errors.New("disk full")}
	db := &fakeDB{}
	log := newTestAuditLog(t, repo, db)

	mutated := false
	_, err := log.WithAudit(context.Background(), validEntry(), func(tx pgx.Tx) error {
		mutated = true
		return nil
	})

	assert.ErrorIs(t, err, xerrors.ErrStorageUnavailable)
	assert.True(t, mutated)
	require.NotNil(t, db.lastTx)
	assert.False(t, db.lastTx.committed)
	assert.True(t, db.lastTx.rolledBack)
}

func TestWithAudit_InvalidEntry_NoTransactionOpened(t *testing.T) {
	repo := &fakeAuditRepo{}
	db := &fakeDB{}
	log := newTestAuditLog(t, repo, db)

	e := validEntry()
	e.Action = "user.ban"
	e.Reason = ""

	_, err := log.WithAudit(context.Background(), e, func(tx pgx.Tx) error {
		t.Fatal("mutation must not run for an invalid entry")
		return nil
	})

	assert.ErrorIs(t, err, xerrors.ErrReasonRequired)
	assert.Nil(t, db.lastTx)
}

func TestTail_ClampsLimit(t *testing.T) {
	repo := &fakeAuditRepo{}
	log := newTestAuditLog(t, repo, &fakeDB{})
	for i := 0; i < 60; i++ {
		_, err := log.Append(context.Background(), validEntry())
		require.NoError(t, err)
	}

	entries, err := log.Tail(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, entries, 50)

	entries, err = log.Tail(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestByTarget_UnknownKindRejected(t *testing.T) {
	log := newTestAuditLog(t, &fakeAuditRepo{}, &fakeDB{})

	_, err := log.ByTarget(context.Background(), domain.Target{Kind: "starship", ID: "x"})

	assert.ErrorIs(t, err, xerrors.ErrUnknownTargetKind)
}
