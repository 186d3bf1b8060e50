package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  bool
	}{
		{"yes", true},
		{"Yes", true},
		{"Y", true},
		{"true", true},
		{"True", true},
		{"t", true},
		{"1", true},
		{"100", true},
		{"  yes  ", true},
		{"yeah, why not", true},
		{"", false},
		{"   ", false},
		{"no", false},
		{"false", false},
		{"0", false},
		{"enabled", false},
		{"on", false},
	}
	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestSnapshot_GetAndBool(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot([]Setting{
		{Key: KeyAuditReads, Value: "no"},
		{Key: KeyAuditWrites, Value: "Yes"},
		{Key: KeyDebugDisplay, Value: "1"},
	})

	v, ok := snap.Get(KeyAuditWrites)
	assert.True(t, ok)
	assert.Equal(t, "Yes", v)

	_, ok = snap.Get("Missing")
	assert.False(t, ok)

	assert.False(t, snap.Bool(KeyAuditReads))
	assert.True(t, snap.Bool(KeyAuditWrites))
	assert.True(t, snap.Bool(KeyDebugDisplay))
	assert.False(t, snap.Bool("Missing"))
}

func TestSnapshot_KeysKeepLoadOrder(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot([]Setting{
		{Key: "b", Value: "1"},
		{Key: "a", Value: "2"},
		{Key: "b", Value: "3"},
	})

	assert.Equal(t, []string{"b", "a"}, snap.Keys())

	v, _ := snap.Get("b")
	assert.Equal(t, "3", v, "later duplicate overwrites the value")
}

func TestSnapshot_NilSafe(t *testing.T) {
	t.Parallel()

	var snap *Snapshot
	_, ok := snap.Get(KeyAuditReads)
	assert.False(t, ok)
	assert.False(t, snap.Bool(KeyAuditReads))
	assert.Nil(t, snap.Keys())
}
