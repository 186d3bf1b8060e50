package flerr

// Code is a machine-readable error code. Codes follow the pattern
// CATEGORY_XXX where CATEGORY is a short identifier and XXX is a three-digit
// numeric code. Codes are stable once assigned.
type Code string

// Error code categories:
//
//	VAL_xxx     - invalid input or configuration values
//	CAT_xxx     - catalog resolution problems
//	STORE_xxx   - store (database/cache) operation failures
//	CONF_xxx    - configuration loading failures
//	UNAVAIL_xxx - a dependency is unreachable
//	TIMEOUT_xxx - an operation exceeded its deadline
const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required value is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a value has an invalid format,
	// including malformed encoded tree text.
	CodeValidationFormat Code = "VAL_003"

	// CodeCatalogMiss indicates a catalog entry was not found. Lookup
	// recovers from misses via its fallback chain; this code surfaces only
	// from direct store reads.
	CodeCatalogMiss Code = "CAT_001"

	// CodeCatalogDuplicate indicates two definitions share an owner/name key.
	CodeCatalogDuplicate Code = "CAT_002"

	// CodeStore indicates a store operation failed.
	CodeStore Code = "STORE_001"

	// CodeStoreNotFound indicates a keyed row does not exist.
	CodeStoreNotFound Code = "STORE_002"

	// CodeConfiguration indicates configuration loading or parsing failed.
	CodeConfiguration Code = "CONF_001"

	// CodeUnavailable indicates a dependency is unreachable.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeTimeout indicates an operation exceeded its deadline or its
	// context was canceled.
	CodeTimeout Code = "TIMEOUT_001"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the code (e.g. "STORE").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
