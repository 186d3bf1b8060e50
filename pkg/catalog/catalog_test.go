package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

func testDefinitions() []Definition {
	return []Definition{
		{
			ID:           50001,
			Owner:        "GetArticle",
			Name:         "ArticleNotFound",
			UserTemplate: "The Article #EntityId# specified was not found",
		},
		{
			ID:                50002,
			Owner:             "SaveOrder",
			Name:              "IndexViolation",
			UserTemplate:      "The order already exists",
			DeveloperTemplate: "Unique index violated in #ProcedureName#: #ChildMessage#",
		},
		{
			ID:                50099,
			Owner:             DefaultFallbackOwner,
			Name:              FallbackErrorName,
			UserTemplate:      "An unexpected error occurred. #ChildMessage#",
			DeveloperTemplate: "Error #ErrorName# (code #ErrorCode#) in #ProcedureName#. #ChildMessage#",
		},
	}
}

func TestNewSnapshot_DuplicateKey(t *testing.T) {
	t.Parallel()
	defs := []Definition{
		{ID: 1, Owner: "P", Name: "E", UserTemplate: "a"},
		{ID: 2, Owner: "P", Name: "E", UserTemplate: "b"},
	}

	_, err := NewSnapshot(defs, "")
	require.Error(t, err)
	assert.True(t, flerr.HasCode(err, flerr.CodeCatalogDuplicate))
}

func TestLookup_ExactMatch(t *testing.T) {
	t.Parallel()
	snap, err := NewSnapshot(testDefinitions(), "")
	require.NoError(t, err)

	tokens := NewTokenSet("EntityId", "10")
	res := snap.Lookup("GetArticle", "ArticleNotFound", tokens)

	assert.Equal(t, 50001, res.Code)
	assert.Equal(t, "The Article 10 specified was not found", res.UserMessage)
	assert.Empty(t, res.DeveloperMessage)
}

func TestLookup_InjectsProcedureAndErrorName(t *testing.T) {
	t.Parallel()
	snap, err := NewSnapshot(testDefinitions(), "")
	require.NoError(t, err)

	tokens := NewTokenSet(TokenChildMessage, "duplicate key row")
	res := snap.Lookup("SaveOrder", "IndexViolation", tokens)

	assert.Equal(t, 50002, res.Code)
	assert.Equal(t,
		"Unique index violated in SaveOrder: duplicate key row",
		res.DeveloperMessage)

	name, ok := tokens.Get(TokenProcedureName)
	require.True(t, ok)
	assert.Equal(t, "SaveOrder", name)
}

func TestLookup_FallbackEntry(t *testing.T) {
	t.Parallel()
	snap, err := NewSnapshot(testDefinitions(), "")
	require.NoError(t, err)

	tokens := NewTokenSet(TokenChildMessage, "raw host text")
	res := snap.Lookup("SaveOrder", "NoSuchError", tokens)

	// The fallback entry's own identifier is the resolved code; the
	// synthesized code 0 goes into the token set for templates.
	assert.Equal(t, 50099, res.Code)
	assert.Equal(t, "An unexpected error occurred. raw host text", res.UserMessage)
	assert.Equal(t,
		"Error NoSuchError (code 0) in SaveOrder. raw host text",
		res.DeveloperMessage)

	code, ok := tokens.Get(TokenErrorCode)
	require.True(t, ok)
	assert.Equal(t, "0", code)
}

func TestLookup_BuiltinBootstrap(t *testing.T) {
	t.Parallel()
	// No fallback entry seeded at all: resolution must still produce a
	// message.
	snap, err := NewSnapshot(nil, "")
	require.NoError(t, err)

	res := snap.Lookup("SaveOrder", "Whatever", NewTokenSet())

	assert.Zero(t, res.Code)
	assert.Contains(t, res.UserMessage, "SaveOrder")
	assert.NotEmpty(t, res.DeveloperMessage)
	assert.Contains(t, res.DeveloperMessage, "Whatever")
}

func TestLookup_NilTokens(t *testing.T) {
	t.Parallel()
	snap, err := NewSnapshot(testDefinitions(), "")
	require.NoError(t, err)

	res := snap.Lookup("GetArticle", "ArticleNotFound", nil)

	assert.Equal(t, 50001, res.Code)
	assert.Contains(t, res.UserMessage, "#EntityId#",
		"placeholder with no token stays verbatim")
}

func TestLookup_CustomFallbackOwner(t *testing.T) {
	t.Parallel()
	defs := []Definition{
		{ID: 7, Owner: "Core", Name: FallbackErrorName, UserTemplate: "core fallback"},
	}
	snap, err := NewSnapshot(defs, "Core")
	require.NoError(t, err)

	res := snap.Lookup("Anything", "Missing", NewTokenSet())

	assert.Equal(t, 7, res.Code)
	assert.Equal(t, "core fallback", res.UserMessage)
}

func TestSnapshot_Len(t *testing.T) {
	t.Parallel()
	snap, err := NewSnapshot(testDefinitions(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
}
