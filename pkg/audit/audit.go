// Package audit records the invocation window of call frames and, on
// failure, the encoded failure tree the frame signaled. Recording is a
// strictly additive, configuration-gated concern: when the applicable flag
// is off, Begin hands back an invalid identifier and every later lifecycle
// call with it is a no-op that performs no writes.
//
// An entry transitions open -> closed-normal via [Recorder.End] or
// open -> closed-failed via [Recorder.Fail]; exactly one of those may ever
// apply. Entries are never deleted by the recorder; retention is the
// [Purger]'s job.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/StricklySoft/faultline/pkg/settings"
)

// ID is the opaque identifier of an audit entry. The zero value is invalid
// and marks a frame whose auditing is disabled.
type ID = uuid.NullUUID

// Entry is one frame invocation record.
type Entry struct {
	ID           uuid.UUID
	Procedure    string
	InputData    string
	OutputData   string
	ErrorMessage string
	StartTime    time.Time
	EndTime      *time.Time
}

// Flags answers whether a gating key is enabled at the moment of the call.
// *settings.Cache satisfies it directly; use [SnapshotFlags] for the
// explicit snapshot threading model.
type Flags interface {
	Bool(ctx context.Context, key string) bool
}

// FlagFunc adapts a function to [Flags].
type FlagFunc func(ctx context.Context, key string) bool

// Bool implements Flags.
func (f FlagFunc) Bool(ctx context.Context, key string) bool {
	return f(ctx, key)
}

// SnapshotFlags adapts an immutable settings snapshot to [Flags].
func SnapshotFlags(snap *settings.Snapshot) Flags {
	return FlagFunc(func(_ context.Context, key string) bool {
		return snap.Bool(key)
	})
}

// Recorder drives the audit-entry lifecycle against a [Store], gated by the
// read/write audit flags. Safe for concurrent use.
type Recorder struct {
	store *Store
	flags Flags
	now   func() time.Time
}

// NewRecorder creates a recorder. A nil flags disables all recording.
func NewRecorder(store *Store, flags Flags) *Recorder {
	return &Recorder{
		store: store,
		flags: flags,
		now:   time.Now,
	}
}

// Begin opens an audit entry for a frame, if the applicable flag
// ([settings.KeyAuditReads] for read-only frames, [settings.KeyAuditWrites]
// otherwise) is truthy. When the flag is off it returns an invalid ID and
// performs no write; End and Fail with that ID are no-ops.
func (r *Recorder) Begin(ctx context.Context, caller string, readOnly bool, input string) (ID, error) {
	key := settings.KeyAuditWrites
	if readOnly {
		key = settings.KeyAuditReads
	}
	if r.flags == nil || !r.flags.Bool(ctx, key) {
		return ID{}, nil
	}

	entry := Entry{
		ID:        uuid.New(),
		Procedure: caller,
		InputData: input,
		StartTime: r.now().UTC(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		return ID{}, err
	}
	return ID{UUID: entry.ID, Valid: true}, nil
}

// End closes an open entry normally, setting its completion time and output
// exactly once. No-op when id is invalid.
func (r *Recorder) End(ctx context.Context, id ID, output string) error {
	if !id.Valid {
		return nil
	}
	return r.store.Complete(ctx, id.UUID, r.now().UTC(), output)
}

// Fail closes an open entry as failed, setting its completion time and the
// encoded failure tree exactly once. No-op when id is invalid.
func (r *Recorder) Fail(ctx context.Context, id ID, encodedTree string) error {
	if !id.Valid {
		return nil
	}
	return r.store.Fail(ctx, id.UUID, r.now().UTC(), encodedTree)
}
