package audit

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

func TestPurger_RunOnce(t *testing.T) {
	t.Parallel()
	store, mock := newMockAuditStore(t)

	mock.ExpectExec("DELETE FROM audit_entry").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	purger := NewPurger(store, 24*time.Hour, "", nil)
	deleted, err := purger.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurger_Defaults(t *testing.T) {
	t.Parallel()
	store, _ := newMockAuditStore(t)

	purger := NewPurger(store, 0, "", nil)
	assert.Equal(t, DefaultRetention, purger.retention)
	assert.Equal(t, DefaultPurgeSchedule, purger.schedule)
	assert.NotNil(t, purger.logger)
}

func TestPurger_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()
	store, _ := newMockAuditStore(t)

	purger := NewPurger(store, 0, "every day at dawn", nil)
	err := purger.Start()
	require.Error(t, err)
	assert.True(t, flerr.HasCode(err, flerr.CodeValidationFormat))
}

func TestPurger_StartStop(t *testing.T) {
	t.Parallel()
	store, _ := newMockAuditStore(t)

	purger := NewPurger(store, 0, DefaultPurgeSchedule, nil)
	require.NoError(t, purger.Start())
	require.NoError(t, purger.Start(), "second start is a no-op")
	purger.Stop()
	purger.Stop()
}
