package propagate

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// Tx is the subset of transaction operations the guard needs. Satisfied by
// [pgx.Tx].
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxGuard makes transaction-scope ownership explicit: a frame either owns
// the active transaction (it started it) or borrows one started by an outer
// frame. On failure, only the owning frame rolls back, and only while the
// transaction is still active; nested frames never roll back a transaction
// they do not own. Release is deterministic and idempotent on every exit
// path.
//
// A TxGuard belongs to a single frame and is not safe for concurrent use.
type TxGuard struct {
	tx    Tx
	owned bool
	done  bool
}

// Own wraps a transaction this frame started.
func Own(tx Tx) *TxGuard {
	return &TxGuard{tx: tx, owned: true}
}

// Borrow wraps a transaction an outer frame started. Commit and Rollback on
// a borrowed guard are no-ops; the owner releases it.
func Borrow(tx Tx) *TxGuard {
	return &TxGuard{tx: tx}
}

// Owned reports whether this frame started the transaction.
func (g *TxGuard) Owned() bool {
	return g.owned
}

// Active reports whether the guard could still release the transaction.
func (g *TxGuard) Active() bool {
	return g.owned && !g.done
}

// Commit commits an owned, still-active transaction. Borrowed guards are a
// no-op; releasing twice is a no-op.
func (g *TxGuard) Commit(ctx context.Context) error {
	if !g.Active() {
		return nil
	}
	g.done = true
	if err := g.tx.Commit(ctx); err != nil {
		return flerr.Wrap(err, flerr.CodeStore, "propagate: commit failed")
	}
	return nil
}

// Rollback rolls back an owned, still-active transaction. Borrowed guards
// are a no-op; releasing twice is a no-op; a transaction the driver already
// closed is tolerated.
func (g *TxGuard) Rollback(ctx context.Context) error {
	if !g.Active() {
		return nil
	}
	g.done = true
	if err := g.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return flerr.Wrap(err, flerr.CodeStore, "propagate: rollback failed")
	}
	return nil
}
