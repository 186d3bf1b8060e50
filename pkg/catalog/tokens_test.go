package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		template string
		tokens   *TokenSet
		want     string
	}{
		{
			name:     "single placeholder",
			template: "The Article #EntityId# specified was not found",
			tokens:   NewTokenSet("EntityId", "10"),
			want:     "The Article 10 specified was not found",
		},
		{
			name:     "unresolved placeholder stays verbatim",
			template: "value is #Missing#",
			tokens:   NewTokenSet("EntityId", "10"),
			want:     "value is #Missing#",
		},
		{
			name:     "tokens without placeholders are ignored",
			template: "plain text",
			tokens:   NewTokenSet("Unused", "x"),
			want:     "plain text",
		},
		{
			name:     "empty token value substitutes empty",
			template: "[#EntityId#]",
			tokens:   NewTokenSet("EntityId", ""),
			want:     "[]",
		},
		{
			name:     "repeated placeholder",
			template: "#Name# and #Name#",
			tokens:   NewTokenSet("Name", "Alice"),
			want:     "Alice and Alice",
		},
		{
			name:     "child message defaults to empty",
			template: "failed. #ChildMessage#",
			tokens:   NewTokenSet(),
			want:     "failed. ",
		},
		{
			name:     "child message from token",
			template: "failed: #ChildMessage#",
			tokens:   NewTokenSet(TokenChildMessage, "inner detail"),
			want:     "failed: inner detail",
		},
		{
			name:     "lone hash is literal",
			template: "item #1 of batch",
			tokens:   NewTokenSet(),
			want:     "item #1 of batch",
		},
		{
			name:     "names are case sensitive",
			template: "#entityid#",
			tokens:   NewTokenSet("EntityId", "10"),
			want:     "#entityid#",
		},
		{
			name:     "nil token set",
			template: "#EntityId# stays",
			tokens:   nil,
			want:     "#EntityId# stays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Substitute(tt.template, tt.tokens))
		})
	}
}

func TestTokenSet_OrderAndLastWriteWins(t *testing.T) {
	t.Parallel()
	ts := NewTokenSet("a", "1", "b", "2")
	ts.Set("a", "replaced")

	var names []string
	ts.Each(func(name, _ string) { names = append(names, name) })
	assert.Equal(t, []string{"a", "b"}, names)

	v, ok := ts.Get("a")
	require.True(t, ok)
	assert.Equal(t, "replaced", v)
}

func TestTokenSet_Delete(t *testing.T) {
	t.Parallel()
	ts := NewTokenSet("a", "1", "b", "2", "c", "3")
	ts.Delete("b")
	ts.Delete("missing")

	assert.Equal(t, 2, ts.Len())
	_, ok := ts.Get("b")
	assert.False(t, ok)
}

func TestTokenSet_Elevate(t *testing.T) {
	t.Parallel()
	namer := ProcedureNamer(func(id int) string {
		if id == 73 {
			return "SaveOrder"
		}
		return ""
	})

	ts := NewTokenSet(TokenProcedureID, "73", TokenSourceLine, "120", "EntityId", "10")

	procedure, line := ts.Elevate(namer)

	assert.Equal(t, "SaveOrder", procedure)
	assert.Equal(t, 120, line)

	// Reserved keys are removed; ordinary tokens stay.
	_, ok := ts.Get(TokenProcedureID)
	assert.False(t, ok)
	_, ok = ts.Get(TokenSourceLine)
	assert.False(t, ok)
	_, ok = ts.Get("EntityId")
	assert.True(t, ok)
}

func TestTokenSet_ElevateUnresolvedID(t *testing.T) {
	t.Parallel()
	ts := NewTokenSet(TokenProcedureID, "99")

	procedure, line := ts.Elevate(nil)

	assert.Equal(t, "99", procedure, "unresolved identifier is kept as the name")
	assert.Zero(t, line)
}

func TestTokenSet_ElevateMissing(t *testing.T) {
	t.Parallel()
	ts := NewTokenSet("EntityId", "10")

	procedure, line := ts.Elevate(nil)

	assert.Empty(t, procedure)
	assert.Zero(t, line)
	assert.Equal(t, 1, ts.Len())
}
