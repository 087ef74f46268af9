package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDimensions_OrderInsensitive(t *testing.T) {
	a := map[string]string{"category": "housing", "region": "nbo"}
	b := map[string]string{"region": "nbo", "category": "housing"}

	assert.Equal(t, NormalizeDimensions(a), NormalizeDimensions(b))
	assert.Equal(t, "category=housing&region=nbo", NormalizeDimensions(a))
}

func TestNormalizeDimensions_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeDimensions(nil))
	assert.Equal(t, "", NormalizeDimensions(map[string]string{}))
}

func TestNormalizeDimensions_DistinctSetsDiffer(t *testing.T) {
	a := map[string]string{"category": "housing"}
	b := map[string]string{"category": "jobs"}
	c := map[string]string{"category": "housing", "region": "nbo"}

	assert.NotEqual(t, NormalizeDimensions(a), NormalizeDimensions(b))
	assert.NotEqual(t, NormalizeDimensions(a), NormalizeDimensions(c))
}

func TestMarshalDimensions_NilBecomesEmptyObject(t *testing.T) {
	raw, err := MarshalDimensions(nil)
	assert.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2026, 8, 29, 17, 42, 13, 999, time.FixedZone("EAT", 3*3600))
	got := TruncateToDay(in)

	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}
