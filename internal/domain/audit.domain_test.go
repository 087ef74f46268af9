package domain

import (
	"testing"

	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/stretchr/testify/assert"
)

func TestDestructive(t *testing.T) {
	tests := []struct {
		action string
		want   bool
	}{
		{"user.suspend", true},
		{"user.ban", true},
		{"listing.delete", true},
		{"user.role_change", true},
		{"listing.approve", false},
		{"session.revoke", false},
		{"feature_flag.update", false},
		{"suspend", false}, // bare verb, no noun
		{"", false},
	}
	for _, tt := range tests {
		e := AuditEntry{Action: tt.action}
		assert.Equal(t, tt.want, e.Destructive(), "action %q", tt.action)
	}
}

func TestAuditValidate(t *testing.T) {
	base := func() AuditEntry {
		return AuditEntry{
			ActorID:  "admin-1",
			Action:   "listing.approve",
			Target:   Target{Kind: TargetListing, ID: "l-1"},
			OriginIP: "10.0.0.1",
		}
	}

	e := base()
	assert.NoError(t, e.Validate())

	e = base()
	e.ActorID = ""
	assert.ErrorIs(t, e.Validate(), xerrors.ErrActorRequired)

	e = base()
	e.Action = ""
	assert.ErrorIs(t, e.Validate(), xerrors.ErrActionRequired)

	e = base()
	e.OriginIP = ""
	assert.ErrorIs(t, e.Validate(), xerrors.ErrOriginIPRequired)

	e = base()
	e.Target = Target{}
	assert.ErrorIs(t, e.Validate(), xerrors.ErrTargetRequired)

	e = base()
	e.Target.Kind = "spaceship"
	assert.ErrorIs(t, e.Validate(), xerrors.ErrUnknownTargetKind)

	e = base()
	e.Action = "user.ban"
	assert.ErrorIs(t, e.Validate(), xerrors.ErrReasonRequired)
	e.Reason = "ToS violation"
	assert.NoError(t, e.Validate())
}

func TestTargetKindSet(t *testing.T) {
	for _, k := range []TargetKind{
		TargetUser, TargetListing, TargetProperty, TargetJob, TargetTutor,
		TargetMedical, TargetBooking, TargetMessage, TargetReview,
		TargetFlag, TargetPermission, TargetSession, TargetSystem,
	} {
		assert.True(t, k.Valid(), "kind %q", k)
	}
	assert.False(t, TargetKind("spaceship").Valid())
}

func TestReviewTarget_ExactlyOneReference(t *testing.T) {
	rt, err := NewReviewTarget(TargetListing, "l-1")
	assert.NoError(t, err)
	assert.Equal(t, TargetListing, rt.Kind())
	assert.NotNil(t, rt.ListingID)
	assert.Nil(t, rt.PropertyID)
	assert.Nil(t, rt.JobID)

	rt, err = NewReviewTarget(TargetProperty, "p-1")
	assert.NoError(t, err)
	assert.Equal(t, TargetProperty, rt.Kind())

	rt, err = NewReviewTarget(TargetJob, "j-1")
	assert.NoError(t, err)
	assert.Equal(t, TargetJob, rt.Kind())

	_, err = NewReviewTarget(TargetUser, "u-1")
	assert.ErrorIs(t, err, xerrors.ErrUnknownTargetKind)
}
