package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/faultline/internal/testutil"
	"github.com/StricklySoft/faultline/pkg/flerr"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func definitionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"error_id", "owner_procedure", "error_name",
		"user_message_template", "developer_message_template",
	})
}

func TestStore_Load(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WillReturnRows(definitionRows().
			AddRow(50001, "GetArticle", "ArticleNotFound", "The Article #EntityId# specified was not found", "").
			AddRow(50099, "System", "UnknownError", "An unexpected error occurred. #ChildMessage#", "code #ErrorCode#"))

	defs, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, 50001, defs[0].ID)
	assert.Equal(t, "GetArticle", defs[0].Owner)
	assert.Equal(t, "code #ErrorCode#", defs[1].DeveloperTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Load_QueryError(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Load(context.Background())
	testutil.RequireErrorCode(t, err, flerr.CodeStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Load_ContextCanceled(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WillReturnError(context.Canceled)

	_, err := store.Load(context.Background())
	testutil.RequireErrorCode(t, err, flerr.CodeTimeout)
}

func TestStore_Get(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WithArgs("SaveOrder", "IndexViolation").
		WillReturnRows(definitionRows().
			AddRow(50002, "SaveOrder", "IndexViolation", "The order already exists", ""))

	def, err := store.Get(context.Background(), "SaveOrder", "IndexViolation")
	require.NoError(t, err)
	assert.Equal(t, 50002, def.ID)
	assert.Equal(t, "The order already exists", def.UserTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_Miss(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WithArgs("SaveOrder", "NoSuchError").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "SaveOrder", "NoSuchError")
	testutil.RequireErrorCode(t, err, flerr.CodeCatalogMiss)
}

func TestStore_Snapshot(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT error_id").
		WillReturnRows(definitionRows().
			AddRow(50001, "GetArticle", "ArticleNotFound", "not found", ""))

	snap, err := store.Snapshot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Seed(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	defs := []Definition{
		{ID: 50001, Owner: "GetArticle", Name: "ArticleNotFound", UserTemplate: "not found"},
		{ID: 50002, Owner: "SaveOrder", Name: "IndexViolation", UserTemplate: "duplicate", DeveloperTemplate: "dup key"},
	}
	for _, d := range defs {
		mock.ExpectExec("INSERT INTO error_definition").
			WithArgs(d.ID, d.Owner, d.Name, d.UserTemplate, d.DeveloperTemplate).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.Seed(context.Background(), defs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Seed_Error(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO error_definition").
		WillReturnError(errors.New("permission denied"))

	err := store.Seed(context.Background(), []Definition{
		{ID: 1, Owner: "P", Name: "E", UserTemplate: "t"},
	})
	testutil.RequireErrorCode(t, err, flerr.CodeStore)
}
