package catalog

import (
	"context"
	"errors"

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
const tracerName = "github.com/StricklySoft/faultline/pkg/catalog"

// Querier is the subset of pgx pool operations the catalog store needs. It
// is satisfied by [*pgxpool.Pool] and by pgxmock pools, enabling unit tests
// without a real database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface compliance check.
var _ Querier = (*pgxpool.Pool)(nil)

const (
	loadSQL = `SELECT error_id, owner_procedure, error_name,
       user_message_template, COALESCE(developer_message_template, '')
FROM error_definition
ORDER BY error_id`

	getSQL = `SELECT error_id, owner_procedure, error_name,
       user_message_template, COALESCE(developer_message_template, '')
FROM error_definition
WHERE owner_procedure = $1 AND error_name = $2`

	seedSQL = `INSERT INTO error_definition
    (error_id, owner_procedure, error_name, user_message_template, developer_message_template)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))
ON CONFLICT (owner_procedure, error_name) DO UPDATE SET
    error_id = EXCLUDED.error_id,
    user_message_template = EXCLUDED.user_message_template,
    developer_message_template = EXCLUDED.developer_message_template`
)

// Store reads (and, at deployment time, seeds) the persistent catalog of
// error definitions. The runtime core only ever consumes the read side,
// through [Store.Snapshot].
//
// A Store is safe for concurrent use.
type Store struct {
	db     Querier
	tracer trace.Tracer
}

// NewStore creates a catalog store over db, typically a [*pgxpool.Pool].
func NewStore(db Querier) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// Load reads every definition, ordered by error identifier.
func (s *Store) Load(ctx context.Context) ([]Definition, error) {
	ctx, span := s.startSpan(ctx, "Load")

	rows, err := s.db.Query(ctx, loadSQL)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "catalog: load failed")
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Owner, &d.Name, &d.UserTemplate, &d.DeveloperTemplate); err != nil {
			finishSpan(span, err)
			return nil, wrapError(err, "catalog: scan failed")
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "catalog: load failed")
	}
	finishSpan(span, nil)
	return defs, nil
}

// Get reads a single definition by its (owner, name) key. A missing row
// yields a [flerr.CodeCatalogMiss] error; runtime resolution should go
// through [Snapshot.Lookup] instead, which recovers from misses.
func (s *Store) Get(ctx context.Context, owner, name string) (Definition, error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer span.End()

	var d Definition
	err := s.db.QueryRow(ctx, getSQL, owner, name).
		Scan(&d.ID, &d.Owner, &d.Name, &d.UserTemplate, &d.DeveloperTemplate)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, flerr.Newf(flerr.CodeCatalogMiss,
			"catalog: no definition for (%s, %s)", owner, name)
	}
	if err != nil {
		return Definition{}, wrapError(err, "catalog: get failed")
	}
	return d, nil
}

// Snapshot loads all definitions and indexes them into an immutable
// [Snapshot] with the given fallback owner ("" for the default).
func (s *Store) Snapshot(ctx context.Context, fallbackOwner string) (*Snapshot, error) {
	defs, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(defs, fallbackOwner)
}

// Seed upserts definitions by their (owner, name) key. Seeding is a
// deployment-time operation; it must not run concurrently with snapshot
// refreshes that expect a stable catalog.
func (s *Store) Seed(ctx context.Context, defs []Definition) error {
	ctx, span := s.startSpan(ctx, "Seed")

	for _, d := range defs {
		if _, err := s.db.Exec(ctx, seedSQL,
			d.ID, d.Owner, d.Name, d.UserTemplate, d.DeveloperTemplate); err != nil {
			finishSpan(span, err)
			return wrapError(err, "catalog: seed failed")
		}
	}
	finishSpan(span, nil)
	return nil
}

func (s *Store) startSpan(ctx context.Context, operationName string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "catalog."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "error_definition"),
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

// wrapError converts a database error to a [*flerr.Error], distinguishing
// timeouts so callers can make retry decisions.
func wrapError(err error, message string) *flerr.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return flerr.Wrap(err, flerr.CodeTimeout, message)
	}
	return flerr.Wrap(err, flerr.CodeStore, message)
}
