package catalog

import (
	"strconv"
	"strings"
)

// Reserved token names. ProcedureName and ErrorName are always injected by
// Lookup; ChildMessage defaults to empty instead of staying verbatim;
// ProcedureID and SourceLine are elevated onto the node being built rather
// than substituted.
const (
	// TokenProcedureName is the name of the procedure handling the error.
	TokenProcedureName = "ProcedureName"

	// TokenErrorName is the name of the error being looked up.
	TokenErrorName = "ErrorName"

	// TokenErrorCode carries the resolved numeric code. Lookup synthesizes
	// it as "0" when falling back past an exact match.
	TokenErrorCode = "ErrorCode"

	// TokenChildMessage is resolved from the nested failure's message (or
	// from the raw low-level message a leaf was synthesized around); when
	// neither exists it substitutes as the empty string.
	TokenChildMessage = "ChildMessage"

	// TokenProcedureID is a numeric procedure identifier supplied by a
	// caller's diagnostic context. Elevate resolves it to a human-readable
	// name and removes it from the set.
	TokenProcedureID = "ProcedureId"

	// TokenSourceLine is the source line supplied by a caller's diagnostic
	// context. Elevate removes it from the set.
	TokenSourceLine = "SourceLine"
)

// ProcedureNamer resolves a numeric procedure identifier to a human-readable
// procedure name. Implementations typically wrap whatever registry the host
// environment keeps; returning "" leaves the identifier unresolved.
type ProcedureNamer func(id int) string

// token is one named value. A slice keeps insertion order deterministic;
// Go map iteration order is unspecified.
type token struct {
	name  string
	value string
}

// TokenSet is an ordered, case-sensitive mapping from token name to string
// value. Setting an existing name replaces the value in place (last write
// wins).
type TokenSet struct {
	tokens []token
}

// NewTokenSet builds a token set from alternating name/value pairs.
func NewTokenSet(pairs ...string) *TokenSet {
	t := &TokenSet{}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i], pairs[i+1])
	}
	return t
}

// Set adds or replaces a token, preserving position on replace.
func (t *TokenSet) Set(name, value string) {
	for i := range t.tokens {
		if t.tokens[i].name == name {
			t.tokens[i].value = value
			return
		}
	}
	t.tokens = append(t.tokens, token{name: name, value: value})
}

// Get returns the value for name and whether it is present.
func (t *TokenSet) Get(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	for i := range t.tokens {
		if t.tokens[i].name == name {
			return t.tokens[i].value, true
		}
	}
	return "", false
}

// Delete removes name from the set; absent names are a no-op.
func (t *TokenSet) Delete(name string) {
	for i := range t.tokens {
		if t.tokens[i].name == name {
			t.tokens = append(t.tokens[:i], t.tokens[i+1:]...)
			return
		}
	}
}

// Len reports the number of tokens.
func (t *TokenSet) Len() int {
	if t == nil {
		return 0
	}
	return len(t.tokens)
}

// Each calls fn for every token in insertion order.
func (t *TokenSet) Each(fn func(name, value string)) {
	if t == nil {
		return
	}
	for _, tok := range t.tokens {
		fn(tok.name, tok.value)
	}
}

// Elevate extracts the reserved ProcedureId and SourceLine tokens, removing
// them from the set. The procedure identifier is resolved through namer when
// it parses as a number; otherwise the raw value is returned as the name.
// Missing tokens yield "" and 0.
func (t *TokenSet) Elevate(namer ProcedureNamer) (procedure string, line int) {
	if raw, ok := t.Get(TokenProcedureID); ok {
		t.Delete(TokenProcedureID)
		procedure = raw
		if id, err := strconv.Atoi(raw); err == nil && namer != nil {
			if name := namer(id); name != "" {
				procedure = name
			}
		}
	}
	if raw, ok := t.Get(TokenSourceLine); ok {
		t.Delete(TokenSourceLine)
		if n, err := strconv.Atoi(raw); err == nil {
			line = n
		}
	}
	return procedure, line
}

// Substitute replaces every #name# placeholder in template with the
// corresponding token value. Placeholders with no matching token are left
// verbatim; tokens with no matching placeholder are ignored. The reserved
// #ChildMessage# placeholder substitutes as the empty string when the token
// is unset, since a failure with no nested detail still needs a complete
// message.
func Substitute(template string, tokens *TokenSet) string {
	rest := template
	var sb strings.Builder
	for {
		i := strings.IndexByte(rest, '#')
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		j := strings.IndexByte(rest[i+1:], '#')
		if j < 0 {
			sb.WriteString(rest)
			break
		}
		name := rest[i+1 : i+1+j]
		if value, ok := tokens.Get(name); ok {
			sb.WriteString(rest[:i])
			sb.WriteString(value)
			rest = rest[i+j+2:]
			continue
		}
		if name == TokenChildMessage {
			sb.WriteString(rest[:i])
			rest = rest[i+j+2:]
			continue
		}
		// Unresolved placeholder: keep the opening '#' literal and rescan
		// from the closing one, which may open the next placeholder.
		sb.WriteString(rest[:i+1])
		rest = rest[i+1:]
	}
	return sb.String()
}
