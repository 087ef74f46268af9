package domain

import (
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"
)

// TargetKind enumerates the entity kinds an admin action can mutate.
// The marketplace verticals share one audit trail, so the kind set covers
// all of them plus the admin-facing entities themselves.
type TargetKind string

const (
	TargetUser       TargetKind = "user"
	TargetListing    TargetKind = "listing"
	TargetProperty   TargetKind = "property"
	TargetJob        TargetKind = "job"
	TargetTutor      TargetKind = "tutor"
	TargetMedical    TargetKind = "medical_service"
	TargetBooking    TargetKind = "booking"
	TargetMessage    TargetKind = "message"
	TargetReview     TargetKind = "review"
	TargetFlag       TargetKind = "feature_flag"
	TargetPermission TargetKind = "permission"
	TargetSession    TargetKind = "session"
	TargetSystem     TargetKind = "system"
)

var targetKinds = map[TargetKind]struct{}{
	TargetUser: {}, TargetListing: {}, TargetProperty: {}, TargetJob: {},
	TargetTutor: {}, TargetMedical: {}, TargetBooking: {}, TargetMessage: {},
	TargetReview: {}, TargetFlag: {}, TargetPermission: {}, TargetSession: {},
	TargetSystem: {},
}

func (k TargetKind) Valid() bool {
	_, ok := targetKinds[k]
	return ok
}

// Target identifies the entity an audit entry describes. ID may be empty for
// kind-level actions (e.g. "system" maintenance toggles).
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

func (t Target) Validate() error {
	if t.Kind == "" {
		return xerrors.ErrTargetRequired
	}
	if !t.Kind.Valid() {
		return xerrors.ErrUnknownTargetKind
	}
	return nil
}

// ReviewTarget is the tagged variant behind user_reviews: exactly one of the
// vertical references is set. The constructor is the only way to build one,
// mirroring the table's CHECK constraint at the application layer.
type ReviewTarget struct {
	ListingID  *string `json:"listing_id,omitempty"`
	PropertyID *string `json:"property_id,omitempty"`
	JobID      *string `json:"job_id,omitempty"`
}

func NewReviewTarget(kind TargetKind, id string) (ReviewTarget, error) {
	switch kind {
	case TargetListing:
		return ReviewTarget{ListingID: &id}, nil
	case TargetProperty:
		return ReviewTarget{PropertyID: &id}, nil
	case TargetJob:
		return ReviewTarget{JobID: &id}, nil
	default:
		return ReviewTarget{}, xerrors.ErrUnknownTargetKind
	}
}

func (rt ReviewTarget) Kind() TargetKind {
	switch {
	case rt.ListingID != nil:
		return TargetListing
	case rt.PropertyID != nil:
		return TargetProperty
	case rt.JobID != nil:
		return TargetJob
	default:
		return ""
	}
}
