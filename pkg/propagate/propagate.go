// Package propagate implements the per-frame dispatch that decides, on
// catch, whether a failure is newly originating, already structured, or a
// recognized low-level failure, composes the failure tree accordingly, fits
// it to the signaling budget, updates the frame's audit entry, and
// re-signals.
//
// # Dispatch
//
// [Dispatcher.HandleFailure] is invoked once per call frame on failure with
// the frame's identity, an optional audit-entry identifier, and a [Snapshot]
// of the failure state. It classifies the failure (first match wins):
//
//   - Reentry: the failure's originating procedure is this frame; the
//     existing tree is extended with a thin context and the root is left
//     untouched.
//   - UserDefined: the failure's number is at or above the user-defined
//     floor, meaning it already originated from this framework somewhere in
//     the chain; the tree is extended with caller/thrower context.
//   - KnownHostFailure: the number matches an enumerated low-level failure
//     (unique-index violation, deadlock); the raw message is discarded as
//     user-facing text and the frame's own catalog entry renders a new root.
//   - UnknownHostFailure: the default; as above with the UnknownSystemError
//     entry.
//
// Every invocation performs at most one audit update and exactly one
// re-signal: HandleFailure always returns a non-nil [*Failure]. The core
// never swallows a failure; it only enriches or simplifies the message en
// route.
//
// # Snapshots
//
// Some recovery paths irreversibly clear live failure state before dispatch
// can run; [Capture] exists to snapshot that state first. It recognizes
// failures this framework signaled earlier ([*Failure]), PostgreSQL driver
// errors ([*pgconn.PgError], with SQLSTATE mapped onto the enumerated host
// codes), and opaque errors.
package propagate

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/StricklySoft/faultline/pkg/catalog"
)

// Well-known host failure codes and the catalog entry names they select.
const (
	// CodeUniqueIndexViolation is a duplicate key in a unique index.
	CodeUniqueIndexViolation = 2601

	// CodeUniqueConstraintViolation is a unique constraint violation.
	CodeUniqueConstraintViolation = 2627

	// CodeDeadlock is a lock cycle broken by the host choosing a victim.
	CodeDeadlock = 1205

	// NameIndexViolation selects a frame's catalog entry for unique
	// index/constraint violations.
	NameIndexViolation = "IndexViolation"

	// NameDeadlock selects a frame's catalog entry for deadlocks.
	NameDeadlock = "Deadlock"

	// NameUnknownSystemError selects a frame's catalog entry for
	// unclassified host failures.
	NameUnknownSystemError = "UnknownSystemError"
)

// DefaultUserDefinedFloor is the reserved threshold at or above which a
// failure number marks a framework-originated signal.
const DefaultUserDefinedFloor = 50000

// Default severity and diagnostic state for failures whose snapshot does not
// carry them.
const (
	DefaultSeverity = 16
	DefaultState    = 1
)

// Failure is the re-signaled form of a failure: bounded encoded tree text
// plus the numeric severity/diagnostic-state values carried across the frame
// boundary. It is the wire contract between independently implemented
// frames.
type Failure struct {
	// Text is the encoded failure tree, fitted to the signaling budget.
	Text string

	// Number is the failure's numeric code. Framework-originated signals
	// carry the user-defined floor or above.
	Number int

	// Severity and State are carried through from the original failure.
	Severity int
	State    int

	// Procedure and Line identify the frame that re-signaled.
	Procedure string
	Line      int
}

// Error implements the error interface; the message is the encoded tree.
func (f *Failure) Error() string {
	return f.Text
}

// Frame identifies the procedure handling a failure, plus the diagnostics it
// contributes to context nodes. Tokens carries caller-supplied template
// context for catalog lookups; it may be nil.
type Frame struct {
	Procedure string
	Caller    string
	Line      int
	Session   string
	Database  string
	Tokens    *catalog.TokenSet
}

// Snapshot is captured failure state: what dispatch needs even after a
// recovery path has cleared the live failure.
type Snapshot struct {
	// Message is the signaled text: an encoded tree for structured
	// failures, opaque text otherwise.
	Message string

	// Number is the failure's numeric code.
	Number int

	// Severity and State are the host severity and diagnostic state.
	Severity int
	State    int

	// Procedure names the originating procedure, when known.
	Procedure string

	// Line is the originating source line, when known.
	Line int
}

// Capture builds a Snapshot from an error value.
//
// A [*Failure] round-trips its fields. A [*pgconn.PgError] maps onto the
// enumerated host codes (SQLSTATE 23505 to the unique-index violation code,
// 40P01 to the deadlock code) with severity derived from the driver's
// severity text. Any other error is captured as an opaque message with
// default severity and state.
func Capture(err error) Snapshot {
	var f *Failure
	if errors.As(err, &f) {
		return Snapshot{
			Message:   f.Text,
			Number:    f.Number,
			Severity:  f.Severity,
			State:     f.State,
			Procedure: f.Procedure,
			Line:      f.Line,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Snapshot{
			Message:  pgErr.Message,
			Number:   hostCodeForSQLState(pgErr.Code),
			Severity: severityFor(pgErr.Severity),
			State:    DefaultState,
		}
	}

	return Snapshot{
		Message:  err.Error(),
		Severity: DefaultSeverity,
		State:    DefaultState,
	}
}

// hostCodeForSQLState maps PostgreSQL SQLSTATE classes onto the enumerated
// host failure codes. Unmapped states yield 0, which dispatch classifies as
// an unknown host failure.
func hostCodeForSQLState(sqlstate string) int {
	switch sqlstate {
	case "23505": // unique_violation
		return CodeUniqueIndexViolation
	case "40P01": // deadlock_detected
		return CodeDeadlock
	default:
		return 0
	}
}

func severityFor(text string) int {
	switch text {
	case "FATAL":
		return 20
	case "PANIC":
		return 24
	default:
		return DefaultSeverity
	}
}
