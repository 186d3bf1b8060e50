package settings

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
const tracerName = "github.com/StricklySoft/faultline/pkg/settings"

// Querier is the subset of pgx pool operations the settings store needs.
// Satisfied by [*pgxpool.Pool] and pgxmock pools.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface compliance check.
var _ Querier = (*pgxpool.Pool)(nil)

const (
	loadSQL = `SELECT setting_key, setting_value, COALESCE(description, '')
FROM app_setting
ORDER BY setting_key`

	getSQL = `SELECT setting_value FROM app_setting WHERE setting_key = $1`

	putSQL = `INSERT INTO app_setting (setting_key, setting_value, description)
VALUES ($1, $2, NULLIF($3, ''))
ON CONFLICT (setting_key) DO UPDATE SET
    setting_value = EXCLUDED.setting_value,
    description = COALESCE(EXCLUDED.description, app_setting.description)`
)

// Store reads the persistent key/value settings table. Maintenance of the
// table is a deployment concern; [Store.Put] exists for seeding and tests.
//
// A Store is safe for concurrent use.
type Store struct {
	db     Querier
	tracer trace.Tracer
}

// NewStore creates a settings store over db, typically a [*pgxpool.Pool].
func NewStore(db Querier) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// Load reads every setting row.
func (s *Store) Load(ctx context.Context) ([]Setting, error) {
	ctx, span := s.startSpan(ctx, "Load")

	rows, err := s.db.Query(ctx, loadSQL)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "settings: load failed")
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var r Setting
		if err := rows.Scan(&r.Key, &r.Value, &r.Description); err != nil {
			finishSpan(span, err)
			return nil, wrapError(err, "settings: scan failed")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "settings: load failed")
	}
	finishSpan(span, nil)
	return out, nil
}

// Get reads one setting value. A missing key yields
// [flerr.CodeStoreNotFound].
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer span.End()

	var value string
	err := s.db.QueryRow(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", flerr.Newf(flerr.CodeStoreNotFound, "settings: no value for %q", key)
	}
	if err != nil {
		return "", wrapError(err, "settings: get failed")
	}
	return value, nil
}

// Put upserts one setting row. An empty description keeps any existing one.
func (s *Store) Put(ctx context.Context, row Setting) error {
	ctx, span := s.startSpan(ctx, "Put")

	_, err := s.db.Exec(ctx, putSQL, row.Key, row.Value, row.Description)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "settings: put failed")
	}
	return nil
}

// Snapshot loads all rows into an immutable [Snapshot].
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(rows), nil
}

func (s *Store) startSpan(ctx context.Context, operationName string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "settings."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "app_setting"),
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
