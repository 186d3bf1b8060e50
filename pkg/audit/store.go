package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/faultline/pkg/audit"

// Querier is the subset of pgx pool operations the audit store needs.
// Satisfied by [*pgxpool.Pool] and pgxmock pools.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface compliance check.
var _ Querier = (*pgxpool.Pool)(nil)

const (
	insertSQL = `INSERT INTO audit_entry
    (entry_id, procedure_name, input_data, start_time)
VALUES ($1, $2, $3, $4)`

	completeSQL = `UPDATE audit_entry
SET end_time = $2, output_data = $3
WHERE entry_id = $1 AND end_time IS NULL`

	failSQL = `UPDATE audit_entry
SET end_time = $2, error_message = $3
WHERE entry_id = $1 AND end_time IS NULL`

	getSQL = `SELECT entry_id, procedure_name, COALESCE(input_data, ''),
       COALESCE(output_data, ''), COALESCE(error_message, ''), start_time, end_time
FROM audit_entry
WHERE entry_id = $1`

	deleteBeforeSQL = `DELETE FROM audit_entry WHERE start_time < $1`
)

// Store persists audit entries. Concurrent frames interact with it only
// through append-then-update-by-id operations; correctness under concurrency
// relies on row-level atomicity of the database, not on locking here.
type Store struct {
	db     Querier
	tracer trace.Tracer
}

// NewStore creates an audit store over db, typically a [*pgxpool.Pool].
func NewStore(db Querier) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// Insert appends a new open entry.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	ctx, span := s.startSpan(ctx, "Insert")

	_, err := s.db.Exec(ctx, insertSQL, e.ID, e.Procedure, e.InputData, e.StartTime)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "audit: insert failed")
	}
	return nil
}

// Complete closes an open entry normally. The guarded update enforces the
// single-transition rule: closing an unknown or already-closed entry yields
// [flerr.CodeStoreNotFound].
func (s *Store) Complete(ctx context.Context, id uuid.UUID, at time.Time, output string) error {
	ctx, span := s.startSpan(ctx, "Complete")

	tag, err := s.db.Exec(ctx, completeSQL, id, at, output)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "audit: complete failed")
	}
	if tag.RowsAffected() == 0 {
		return flerr.Newf(flerr.CodeStoreNotFound,
			"audit: entry %s is unknown or already closed", id)
	}
	return nil
}

// Fail closes an open entry as failed, storing the encoded failure tree.
// Same single-transition guarantee as [Store.Complete].
func (s *Store) Fail(ctx context.Context, id uuid.UUID, at time.Time, encodedTree string) error {
	ctx, span := s.startSpan(ctx, "Fail")

	tag, err := s.db.Exec(ctx, failSQL, id, at, encodedTree)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "audit: fail-update failed")
	}
	if tag.RowsAffected() == 0 {
		return flerr.Newf(flerr.CodeStoreNotFound,
			"audit: entry %s is unknown or already closed", id)
	}
	return nil
}

// Get reads one entry by identifier.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer span.End()

	var e Entry
	err := s.db.QueryRow(ctx, getSQL, id).Scan(
		&e.ID, &e.Procedure, &e.InputData, &e.OutputData,
		&e.ErrorMessage, &e.StartTime, &e.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, flerr.Newf(flerr.CodeStoreNotFound, "audit: no entry %s", id)
	}
	if err != nil {
		return Entry{}, wrapError(err, "audit: get failed")
	}
	return e, nil
}

// DeleteBefore removes entries that started before cutoff and returns how
// many rows were removed. Used by the retention [Purger], never by the
// propagation core.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := s.startSpan(ctx, "DeleteBefore")

	tag, err := s.db.Exec(ctx, deleteBeforeSQL, cutoff)
	finishSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "audit: delete failed")
	}
	return tag.RowsAffected(), nil
}

func (s *Store) startSpan(ctx context.Context, operationName string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "audit."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "audit_entry"),
	)
	return ctx, span
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func wrapError(err error, message string) *flerr.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return flerr.Wrap(err, flerr.CodeTimeout, message)
	}
	return flerr.Wrap(err, flerr.CodeStore, message)
}
