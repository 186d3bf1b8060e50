// Package catalog resolves (owner, name) pairs to message templates and
// renders them through token substitution. The catalog itself is an external,
// read-only table of error definitions; this package loads it into an
// immutable in-memory [Snapshot] that is threaded explicitly through the
// propagation API.
//
// Resolution never fails: an exact match is preferred, then the fallback
// owner's UnknownError entry, then a hard-coded builtin template. The system
// must always be able to produce some message.
package catalog

import (
	"strconv"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// DefaultFallbackOwner is the owner consulted for the UnknownError entry
// when no exact definition exists.
const DefaultFallbackOwner = "System"

// FallbackErrorName is the error name of the catalog-wide fallback entry.
const FallbackErrorName = "UnknownError"

// Builtin templates used when even the fallback entry is missing. These are
// the bootstrap safety net: resolution must produce a message before the
// catalog has been seeded.
const (
	builtinUserTemplate      = "An unexpected error occurred in #ProcedureName#. #ChildMessage#"
	builtinDeveloperTemplate = "Unresolved error #ErrorName# (code #ErrorCode#) raised in #ProcedureName#. #ChildMessage#"
)

// Definition is one error template row. Definitions are immutable at
// runtime; they are owned and mutated only by deployment-time seeding.
type Definition struct {
	// ID is the globally unique numeric error identifier.
	ID int

	// Owner is the procedure that owns this definition.
	Owner string

	// Name is the error name, unique per owner.
	Name string

	// UserTemplate is the caller-facing message template.
	UserTemplate string

	// DeveloperTemplate is the optional diagnostic message template.
	// Empty means absent.
	DeveloperTemplate string
}

// Resolution is the outcome of a lookup: a numeric code and both rendered
// messages. DeveloperMessage is empty when the definition has no developer
// template.
type Resolution struct {
	Code             int
	UserMessage      string
	DeveloperMessage string
}

type defKey struct {
	owner string
	name  string
}

// Snapshot is an immutable in-memory view of the catalog. A Snapshot is safe
// for concurrent use; concurrent frames share one snapshot and never mutate
// it. The refresh policy (when to reload from the store) is the
// integrator's decision.
type Snapshot struct {
	fallbackOwner string
	byKey         map[defKey]Definition
}

// NewSnapshot indexes defs by (owner, name). fallbackOwner selects the owner
// of the UnknownError fallback entry; pass "" for [DefaultFallbackOwner].
// Duplicate (owner, name) pairs yield a [flerr.CodeCatalogDuplicate] error.
func NewSnapshot(defs []Definition, fallbackOwner string) (*Snapshot, error) {
	if fallbackOwner == "" {
		fallbackOwner = DefaultFallbackOwner
	}
	byKey := make(map[defKey]Definition, len(defs))
	for _, d := range defs {
		k := defKey{owner: d.Owner, name: d.Name}
		if _, exists := byKey[k]; exists {
			return nil, flerr.Newf(flerr.CodeCatalogDuplicate,
				"catalog: duplicate definition for (%s, %s)", d.Owner, d.Name)
		}
		byKey[k] = d
	}
	return &Snapshot{fallbackOwner: fallbackOwner, byKey: byKey}, nil
}

// Len reports the number of definitions in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byKey)
}

// Lookup resolves (procedure, name) to a code and rendered messages. The
// resolution chain is: exact match, then the fallback owner's UnknownError
// entry, then the builtin templates. Lookup always injects the handling
// procedure's name and the error name into tokens; when falling back past
// an exact match it also feeds the synthesized code 0 back into the set so
// the fallback template's own placeholders can render the unresolved
// identifiers. Both templates pass through [Substitute].
//
// Lookup reads only the snapshot; it performs no I/O and cannot fail.
func (s *Snapshot) Lookup(procedure, name string, tokens *TokenSet) Resolution {
	if tokens == nil {
		tokens = NewTokenSet()
	}
	tokens.Set(TokenProcedureName, procedure)
	tokens.Set(TokenErrorName, name)

	def, ok := s.byKey[defKey{owner: procedure, name: name}]
	if !ok {
		// CatalogMiss: recovered locally, never surfaced as a failure.
		tokens.Set(TokenErrorCode, "0")
		def, ok = s.byKey[defKey{owner: s.fallbackOwner, name: FallbackErrorName}]
		if !ok {
			def = Definition{
				ID:                0,
				UserTemplate:      builtinUserTemplate,
				DeveloperTemplate: builtinDeveloperTemplate,
			}
		}
	} else {
		tokens.Set(TokenErrorCode, strconv.Itoa(def.ID))
	}

	res := Resolution{
		Code:        def.ID,
		UserMessage: Substitute(def.UserTemplate, tokens),
	}
	if def.DeveloperTemplate != "" {
		res.DeveloperMessage = Substitute(def.DeveloperTemplate, tokens)
	}
	return res
}
